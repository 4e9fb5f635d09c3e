package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsFirstNonEmpty(t *testing.T) {
	t.Setenv("DENTALDESK_TEST_A", "")
	t.Setenv("DENTALDESK_TEST_B", "8080")

	require.Equal(t, "8080", Get("3000", "DENTALDESK_TEST_A", "DENTALDESK_TEST_B"))
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("DENTALDESK_TEST_A", "")

	require.Equal(t, "3000", Get("3000", "DENTALDESK_TEST_A"))
	require.Equal(t, "3000", Get("3000"))
}
