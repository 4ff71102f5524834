package index

import (
	"slices"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{Name: "site"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.EngineIndex() != "site" {
		t.Errorf("EngineIndex() = %q", s.EngineIndex())
	}
	if !s.IsOnline() {
		t.Errorf("Visibility() = %q", s.Visibility())
	}
	if s.RowCap() != DefaultRowCap {
		t.Errorf("RowCap() = %d", s.RowCap())
	}
	if s.OfflineRole() != DefaultOfflineRole {
		t.Errorf("OfflineRole() = %q", s.OfflineRole())
	}
	if !s.CheckPermissions() {
		t.Error("permission checks must default to on")
	}
	if s.PostProcessor() != DefaultPostProcess {
		t.Errorf("PostProcessor() = %q", s.PostProcessor())
	}
}

func TestNew_Explicit(t *testing.T) {
	s, err := New(Config{
		Name:             "staging",
		EngineIndex:      "cms_offline",
		Visibility:       Offline,
		OfflineRole:      "editor",
		RowCap:           200,
		MaxRowsPerPage:   20,
		MaxRows:          100,
		AllowedFields:    []string{"path", " type ", "path"},
		DebugSecretPath:  " /system/secret.txt ",
		CheckPermissions: boolPtr(false),
		PostProcessor:    "link",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsOnline() || s.OfflineRole() != "editor" {
		t.Errorf("visibility=%q role=%q", s.Visibility(), s.OfflineRole())
	}
	if !slices.Equal(s.AllowedFields(), []string{"path", "type"}) {
		t.Errorf("AllowedFields() = %v", s.AllowedFields())
	}
	if s.DebugSecretPath() != "/system/secret.txt" {
		t.Errorf("DebugSecretPath() = %q", s.DebugSecretPath())
	}
	if s.CheckPermissions() {
		t.Error("expected permission checks off")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty name", Config{}, "invalid index name"},
		{"bad name", Config{Name: "a b"}, "invalid index name"},
		{"bad visibility", Config{Name: "x", Visibility: "draft"}, "visibility"},
		{"negative cap", Config{Name: "x", RowCap: -1}, "row_cap"},
		{"negative limit", Config{Name: "x", MaxRows: -1}, "must not be negative"},
		{"per page over total", Config{Name: "x", MaxRowsPerPage: 50, MaxRows: 10}, "exceeds"},
		{"star field", Config{Name: "x", AllowedFields: []string{"*"}}, "concrete fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}
