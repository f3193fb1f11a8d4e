package hap

import (
	"fmt"
	"regexp"
)

var pinFormat = regexp.MustCompile(`^\d{3}-\d{2}-\d{3}$`)
var pinDigits = regexp.MustCompile(`^\d{8}$`)

// invalidPins are trivial setup codes which must not be used.
var invalidPins = map[string]bool{
	"00000000": true,
	"11111111": true,
	"22222222": true,
	"33333333": true,
	"44444444": true,
	"55555555": true,
	"66666666": true,
	"77777777": true,
	"88888888": true,
	"99999999": true,
	"12345678": true,
	"87654321": true,
}

// validatePin checks that pin is an 8-digit setup code, either bare
// ("01102003") or dash-formatted ("011-10-200"), and not one of the
// trivial codes.
func validatePin(pin string) error {
	digits := pin
	if pinFormat.MatchString(pin) {
		digits = pin[0:3] + pin[4:6] + pin[7:10]
	}

	if !pinDigits.MatchString(digits) {
		return fmt.Errorf("invalid setup code %q, use the format DDD-DD-DDD", pin)
	}

	if invalidPins[digits] {
		return fmt.Errorf("setup code %q is too trivial", pin)
	}

	return nil
}

// fmtPin returns the setup code in the dash-separated form used
// as the SRP password.
func (srv *Server) fmtPin() string {
	pin := srv.Pin
	if pinFormat.MatchString(pin) {
		return pin
	}

	return fmt.Sprintf("%s-%s-%s", pin[0:3], pin[3:5], pin[5:8])
}
