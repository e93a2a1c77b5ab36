package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/longpham-dev/milktea-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestInitSchemaContainsSettlementConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE payment_transactions",
		"CONSTRAINT ux_payment_transactions_provider_ref UNIQUE (provider, txn_ref)",
		"status               text NOT NULL DEFAULT 'pending'",
		"payment_status       text NOT NULL DEFAULT 'unpaid'",
		"DROP TABLE IF EXISTS payment_transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLoyaltyMigrationGuardsDoubleCredit(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_add_loyalty_transactions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no loyalty migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	if !strings.Contains(string(data), "CONSTRAINT ux_loyalty_transactions_order UNIQUE (order_id)") {
		t.Error("loyalty migration missing unique order constraint")
	}
}
