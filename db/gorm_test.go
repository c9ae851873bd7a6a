package db

import (
	"strings"
	"testing"

	"AudioScribe/config"

	gomysql "github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	cfg := config.Default()
	cfg.DBHost = "db.internal"
	cfg.DBPort = "3307"
	cfg.DBUser = "scribe"
	cfg.DBPassword = "s3cret:x"

	parsed, err := gomysql.ParseDSN(DSN(cfg))
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if parsed.User != "scribe" || parsed.Passwd != "s3cret:x" {
		t.Fatalf("credentials = %q %q", parsed.User, parsed.Passwd)
	}
	if parsed.Addr != "db.internal:3307" || parsed.DBName != "audioscribe" || parsed.Net != "tcp" {
		t.Fatalf("addr = %q db = %q net = %q", parsed.Addr, parsed.DBName, parsed.Net)
	}
	if !parsed.ParseTime {
		t.Fatal("parseTime should be enabled")
	}
	if !strings.Contains(DSN(cfg), "charset=utf8mb4") {
		t.Fatalf("dsn = %s", DSN(cfg))
	}
}
