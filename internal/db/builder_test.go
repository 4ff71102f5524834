package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Fields(t *testing.T) {
	idx := NewIndex("cms:site:idx").
		Prefix("cms:site:").
		Tag("path").
		TagWithOpts("category", ",", false).
		SortableText("title").
		Text("content").
		Numeric("released").
		MustBuild()

	want := []struct {
		name     string
		typ      IndexFieldType
		sortable bool
	}{
		{"path", IndexFieldTag, false},
		{"category", IndexFieldTag, false},
		{"title", IndexFieldText, true},
		{"content", IndexFieldText, false},
		{"released", IndexFieldNumeric, true},
	}
	if len(idx.Fields) != len(want) {
		t.Fatalf("fields = %d, want %d", len(idx.Fields), len(want))
	}
	for i, w := range want {
		f := idx.Fields[i]
		if f.Name != w.name || f.Type != w.typ || f.Sortable != w.sortable {
			t.Errorf("field[%d] = %+v, want %s %s sortable=%v", i, f, w.name, w.typ, w.sortable)
		}
	}
}

func TestIndexBuilder_WeightAndLanguage(t *testing.T) {
	idx := NewIndex("idx").
		Language("english").
		SortableText("title").Weight(4).
		Text("content").
		MustBuild()

	if idx.Language != "english" {
		t.Errorf("language = %q", idx.Language)
	}
	if idx.Fields[0].Weight != 4 || idx.Fields[1].Weight != 0 {
		t.Errorf("weights = %v, %v", idx.Fields[0].Weight, idx.Fields[1].Weight)
	}
	s := idx.String()
	if !strings.Contains(s, "LANGUAGE english SCHEMA") || !strings.Contains(s, "title TEXT WEIGHT 4 SORTABLE") {
		t.Errorf("String() = %q", s)
	}
}

func TestIndexBuilder_WeightBeforeFieldIsIgnored(t *testing.T) {
	idx := NewIndex("idx").Weight(2).Text("content").MustBuild()
	if idx.Fields[0].Weight != 0 {
		t.Errorf("weight = %v, want 0", idx.Fields[0].Weight)
	}
}

func TestIndexBuilder_BuildCopies(t *testing.T) {
	b := NewIndex("idx").Tag("path")
	first := b.MustBuild()
	b.Tag("type")
	if len(first.Fields) != 1 {
		t.Errorf("built definition changed: %d fields", len(first.Fields))
	}
}

func TestIndexDefinition_Field(t *testing.T) {
	idx := NewIndex("idx").Tag("path").TagWithOpts("category", ",", false).MustBuild()

	f, ok := idx.Field("category")
	if !ok || f.TagSeparator != "," {
		t.Errorf("Field(category) = %+v, %v", f, ok)
	}
	if _, ok := idx.Field("missing"); ok {
		t.Error("Field(missing) must not exist")
	}
}

func TestIndexDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     IndexDefinition
		wantErr string
	}{
		{"empty name", IndexDefinition{Fields: []IndexField{{Name: "x"}}}, "index name is required"},
		{"bad name", IndexDefinition{Name: "has space", Fields: []IndexField{{Name: "x"}}}, "invalid characters"},
		{"no fields", IndexDefinition{Name: "idx"}, "at least one field"},
		{"empty field name", IndexDefinition{Name: "idx", Fields: []IndexField{{Type: IndexFieldTag}}}, "field name is required"},
		{"duplicate", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "f", Type: IndexFieldTag}, {Name: "f", Type: IndexFieldNumeric},
		}}, "duplicate field name"},
		{"separator on text", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "content", Type: IndexFieldText, TagSeparator: ","},
		}}, "only valid on tag fields"},
		{"weight on tag", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "path", Type: IndexFieldTag, Weight: 2},
		}}, "only valid on text fields"},
		{"negative weight", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "title", Type: IndexFieldText, Weight: -1},
		}}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexBuilder_MustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewIndex("").MustBuild()
}

func TestIsValidIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"cms:site:idx": true,
		"site-v2.1":    true,
		"":             false,
		"a b":          false,
		"idx/1":        false,
	} {
		if got := IsValidIdentifier(s); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestIndexFieldType_String(t *testing.T) {
	if IndexFieldTag.String() != "TAG" || IndexFieldType(42).String() != "UNKNOWN" {
		t.Error("unexpected type names")
	}
}
