package migrate_test

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dentaldesk/dentaldesk-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestBillingMigrationsContainConstraints(t *testing.T) {
	tests := []struct {
		pattern string
		checks  []string
	}{
		{
			pattern: "*_create_manual_payments.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS manual_payments",
				"CHECK (status IN ('pending', 'approved', 'rejected'))",
				"CHECK (method IN ('qi_card', 'zain_cash', 'bank_transfer', 'other'))",
				"ck_manual_payments_rejection_reason",
				"DROP TABLE IF EXISTS manual_payments",
			},
		},
		{
			pattern: "*_create_subscriptions.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS subscriptions",
				"amount_usd numeric(12,2) NOT NULL",
				"ck_subscriptions_single_tenant",
				"DROP TABLE IF EXISTS subscriptions",
			},
		},
		{
			pattern: "*_create_tenants.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS clinics",
				"CREATE TABLE IF NOT EXISTS suppliers",
				"ux_profiles_user_id",
				"CHECK (subscription_status IN ('inactive', 'active', 'expired'))",
			},
		},
	}

	fsys := migrate.Embedded()
	for _, tt := range tests {
		matches, err := fs.Glob(fsys, tt.pattern)
		if err != nil {
			t.Fatalf("glob %s: %v", tt.pattern, err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one migration for %s, got %d", tt.pattern, len(matches))
		}
		data, err := fs.ReadFile(fsys, matches[0])
		if err != nil {
			t.Fatalf("read %s: %v", matches[0], err)
		}
		for _, sub := range tt.checks {
			if !strings.Contains(string(data), sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestValidateFSRejectsBadInput(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"20250101000000_things.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"duplicate version": {
			"20250101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20250101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"down before up": {
			"20250101000000_things.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		},
		"unclosed statement": {
			"20250101000000_things.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
		},
		"stray statement end": {
			"20250101000000_things.sql": {Data: []byte("-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n")},
		},
		"empty": {},
	}
	for name, fsys := range cases {
		if err := migrate.ValidateFS(fsys); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestValidateFSReportsEveryBadFile(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.sql":                   {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20250101000000_ok.sql":     {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\n")},
		"20250101000100_broken.sql": {Data: []byte("-- +goose Up\n")},
	}
	err := migrate.ValidateFS(fsys)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"bad.sql", "20250101000100_broken.sql"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if strings.Contains(err.Error(), "20250101000000_ok.sql") {
		t.Errorf("valid file reported: %v", err)
	}
}
