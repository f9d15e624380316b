package util

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var macRe = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address is well formed and belongs to domain
// (e.g. "@iiitdm.ac.in"). An empty domain accepts any address.
func ValidateEmail(email, domain string) error {
	if email == "" {
		return fmt.Errorf("email is empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	if domain != "" && !strings.HasSuffix(email, strings.ToLower(domain)) {
		return fmt.Errorf("only %s email addresses are allowed", domain)
	}
	return nil
}

// ValidatePassword enforces the minimum length used by the registration form.
func ValidatePassword(pwd string, minLen int) error {
	if len(pwd) < minLen {
		return fmt.Errorf("password must be at least %d characters", minLen)
	}
	if len(pwd) > 72 { // bcrypt limit
		return fmt.Errorf("password too long, max 72 characters")
	}
	return nil
}

// NormalizeMAC upper-cases a beacon MAC and accepts '-' as separator.
func NormalizeMAC(mac string) (string, error) {
	m := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(mac), "-", ":"))
	if !macRe.MatchString(m) {
		return "", fmt.Errorf("invalid MAC address %q", mac)
	}
	return m, nil
}

// ValidateWindow requires end to be strictly after start.
func ValidateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !end.After(start) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}

// ValidateDate checks the YYYY-MM-DD format.
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateCode checks batch and hall codes: 2-32 letters or digits.
func ValidateCode(code string) error {
	if len(code) < 2 || len(code) > 32 {
		return fmt.Errorf("code must be 2-32 characters")
	}
	for _, ch := range code {
		if !(ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' || ch == '-') {
			return fmt.Errorf("code may contain only letters, digits and '-'")
		}
	}
	return nil
}
