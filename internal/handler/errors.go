package handler

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/thenithin342/Attendance-ios/internal/attendance"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// markStatus maps a marking error to its HTTP status and business code.
func markStatus(err error) (int, int) {
	switch {
	case errors.Is(err, attendance.ErrNotStudent),
		errors.Is(err, attendance.ErrBatchMismatch):
		return http.StatusForbidden, util.CodeForbidden
	case errors.Is(err, attendance.ErrWindowNotFound),
		errors.Is(err, attendance.ErrStudentNotFound):
		return http.StatusNotFound, util.CodeNotFound
	case errors.Is(err, attendance.ErrNoBatch),
		errors.Is(err, attendance.ErrWindowNotActive),
		errors.Is(err, attendance.ErrHallMismatch),
		errors.Is(err, attendance.ErrAlreadyMarked),
		errors.Is(err, attendance.ErrUnknownMethod),
		errors.Is(err, attendance.ErrVerificationFailed),
		errors.Is(err, attendance.ErrBeaconRequired),
		errors.Is(err, attendance.ErrBeaconMismatch),
		errors.Is(err, attendance.ErrBeaconOutOfRange),
		errors.Is(err, attendance.ErrCapturedInFuture):
		return http.StatusBadRequest, util.CodeInvalidParam
	}
	return http.StatusInternalServerError, util.CodeServerErr
}

func writeMarkError(c *gin.Context, log *zap.Logger, err error) {
	status, code := markStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("mark attendance", zap.Error(err))
		util.Error(c, status, code, "Internal server error")
		return
	}
	util.Error(c, status, code, capitalize(err.Error()))
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
