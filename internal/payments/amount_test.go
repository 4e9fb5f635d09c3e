package payments

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{input: "10,000 IQD", want: 10000},
		{input: "IQD 25.000", want: 25000},
		{input: " 50000 ", want: 50000},
		{input: "١٥٬٠٠٠ د.ع", want: 15000},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.input)
		require.NoError(t, err, tc.input)
		require.Equal(t, tc.want, got, tc.input)
	}
}

func TestParseAmountRejectsEmptyAndZero(t *testing.T) {
	for _, input := range []string{"", "IQD", "0 IQD", "0,000", "99999999999999999999"} {
		_, err := ParseAmount(input)
		require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %q", input)
	}
}
