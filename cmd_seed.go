package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedReset bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample campus dataset",
	Long: `Loads three batches, three halls with beacons, two faculty members, four
students and two open attendance windows. Every account uses the same
password. Without --reset the rows are upserted by id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer database.Close(db)

		if err := database.AutoMigrate(db); err != nil {
			return err
		}

		sum, err := database.Seed(db, seedReset, cfg.Security.BcryptCost, time.Now())
		if err != nil {
			return err
		}
		logger.Info("seed complete",
			zap.Bool("reset", seedReset),
			zap.Int("batches", sum.Batches),
			zap.Int("halls", sum.Halls),
			zap.Int("windows", sum.Windows),
			zap.Int("records", sum.Records))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Faculty:  %s\n", strings.Join(sum.Faculty, ", "))
		fmt.Fprintf(out, "Students: %s\n", strings.Join(sum.Students, ", "))
		fmt.Fprintf(out, "Password: %s\n", database.SeedPassword)
		return nil
	},
}
