package config

import (
	"strings"
	"testing"
)

func TestMySQLDSN(t *testing.T) {
	cfg := defaults()
	cfg.DBUser, cfg.DBPass = "ledger", "s3cret"
	cfg.DBHost, cfg.DBPort = "db.internal", "3307"

	dsn := cfg.MySQLDSN()
	for _, want := range []string{
		"ledger:s3cret@tcp(db.internal:3307)/ledgerflow",
		"clientFoundRows=true",
		"parseTime=true",
		"charset=utf8mb4",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseURL = "postgres://u:p@localhost/ledgerflow"
	if got := cfg.DSN(); got != cfg.DatabaseURL {
		t.Errorf("DSN() = %q", got)
	}
}
