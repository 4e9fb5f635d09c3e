package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrationSlug(t *testing.T) {
	require.Equal(t, "add_clinic_phone_index", migrationSlug("  Add clinic-phone  index! "))
	require.Equal(t, "", migrationSlug("---"))
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add payment index", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20250301090500_add_payment_index.sql"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "-- +goose Up"))
	require.Contains(t, string(raw), "-- rollback add_payment_index")

	_, err = createSQLMigration(dir, "add payment index", now)
	require.ErrorContains(t, err, "already exists")
}

func TestCreateSQLMigrationRejectsEmptyInput(t *testing.T) {
	_, err := createSQLMigration("", "x", time.Now())
	require.Error(t, err)
	_, err = createSQLMigration(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
}
