package payments

import (
	"strconv"
	"strings"

	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

// ParseAmount turns a display price such as "10,000 IQD" into whole IQD by
// dropping every non-digit. Arabic-Indic digits are accepted. Empty and zero
// results are rejected.
func ParseAmount(display string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r >= '\u0660' && r <= '\u0669':
			return '0' + (r - '\u0660')
		case r >= '\u06F0' && r <= '\u06F9':
			return '0' + (r - '\u06F0')
		}
		return -1
	}, display)
	if digits == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount is out of range")
	}
	if amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return amount, nil
}
