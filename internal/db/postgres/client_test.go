package postgres

import (
	"strings"
	"testing"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host: "db", Port: 5432, User: "cms", Password: "secret",
		Database: "cms", SSLMode: "disable",
	}
	want := "host=db port=5432 user=cms password=secret dbname=cms sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestSchema_Embedded(t *testing.T) {
	for _, table := range []string{"cms_resources", "cms_resource_readers", "cms_resource_contents", "cms_user_roles"} {
		if !strings.Contains(schema, table) {
			t.Errorf("schema missing %s", table)
		}
	}
}
