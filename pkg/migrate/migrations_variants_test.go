package migrate_test

import (
	"strings"
	"testing"

	"github.com/amezav/storefront-backend/pkg/migrate"
)

func TestVariantMigrationContainsSignatureIndex(t *testing.T) {
	content := readMigration(t, "*_create_product_variants.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_product_variants_signature ON product_variants (product_id, signature)",
		"CREATE TABLE IF NOT EXISTS variant_option_values",
		"PRIMARY KEY (variant_id, option_value_id)",
		"DROP TABLE IF EXISTS variant_option_values",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOptionValuesMigrationContainsUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_product_options.sql")

	checks := []string{
		"idx_product_options_product_name ON product_options (product_id, name)",
		"idx_option_values_option_value ON product_option_values (option_id, value)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}
