package redis

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsRedisErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		sub  string
		want bool
	}{
		{"case_insensitive", mock.Result(mock.RedisError("Index Already Exists")).Error(), "index already exists", true},
		{"other_message", mock.Result(mock.RedisError("Unknown Index name")).Error(), "already exists", false},
		{"not_server_error", context.DeadlineExceeded, "deadline", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRedisErr(tc.err, tc.sub); got != tc.want {
				t.Errorf("isRedisErr(%v, %q) = %v, want %v", tc.err, tc.sub, got, tc.want)
			}
		})
	}
}

func TestNewStore_NoAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

// --- index.go tests ---

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE" && cmd[1] == "cms:site:idx" &&
				slices.Contains(cmd, "SORTABLE")
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	idx := db.NewIndex("cms:site:idx").
		Prefix("cms:site:").
		Tag("path").
		Numeric("released").
		MustBuild()
	if err := s.CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestIndexExists_True(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("test:idx"))))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true")
	}
}

func TestIndexExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	_, err := buildCreateArgs(&db.IndexDefinition{Name: "", Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}}})
	if err == nil {
		t.Error("expected error for empty name")
	}

	_, err = buildCreateArgs(&db.IndexDefinition{Name: "test"})
	if err == nil {
		t.Error("expected error for empty fields")
	}
}

func TestBuildCreateArgs_Full(t *testing.T) {
	def := db.NewIndex("cms:site:idx").
		Prefix("cms:site:").
		Language("english").
		Tag("path").
		SortableText("title").Weight(3).
		Text("content").
		MustBuild()

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"cms:site:idx", "ON", "HASH", "PREFIX", "1", "cms:site:", "LANGUAGE", "english",
		"SCHEMA",
		"path", "TAG",
		"title", "TEXT", "WEIGHT", "3", "SORTABLE",
		"content", "TEXT",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v\nwant %v", args, want)
	}
}

func TestBuildFieldArgs_AllTypes(t *testing.T) {
	tests := []struct {
		name  string
		field db.IndexField
		want  []string
	}{
		{"tag", db.IndexField{Name: "f", Type: db.IndexFieldTag}, []string{"f", "TAG"}},
		{"numeric", db.IndexField{Name: "f", Type: db.IndexFieldNumeric}, []string{"f", "NUMERIC"}},
		{"text", db.IndexField{Name: "f", Type: db.IndexFieldText}, []string{"f", "TEXT"}},
		{"weighted_text", db.IndexField{Name: "f", Type: db.IndexFieldText, Weight: 2.5},
			[]string{"f", "TEXT", "WEIGHT", "2.5"}},
		{"tag_with_separator", db.IndexField{Name: "f", Type: db.IndexFieldTag, TagSeparator: ","},
			[]string{"f", "TAG", "SEPARATOR", ","}},
		{"tag_case_sensitive", db.IndexField{Name: "f", Type: db.IndexFieldTag, TagCaseSensitive: true},
			[]string{"f", "TAG", "CASESENSITIVE"}},
		{"sortable_numeric", db.IndexField{Name: "f", Type: db.IndexFieldNumeric, Sortable: true},
			[]string{"f", "NUMERIC", "SORTABLE"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args, err := buildFieldArgs(&tc.field)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(args, tc.want) {
				t.Errorf("args = %v, want %v", args, tc.want)
			}
		})
	}
}

func TestBuildFieldArgs_UnknownType(t *testing.T) {
	_, err := buildFieldArgs(&db.IndexField{Name: "f", Type: db.IndexFieldType(99)})
	if err == nil {
		t.Error("expected error for unknown type")
	}
}

// --- search.go tests ---

func TestSearch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "cms:site:idx" &&
				cmd[3] == "WITHSCORES" &&
				slices.Contains(cmd, "LIMIT")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(7),
			mock.RedisString("cms:site:doc-1"),
			mock.RedisString("1.5"),
			mock.RedisArray(
				mock.RedisString("path"), mock.RedisString("/sites/default/a.html"),
				mock.RedisString("type"), mock.RedisString("containerpage"),
			),
			mock.RedisString("cms:site:doc-2"),
			mock.RedisString("0.5"),
			mock.RedisArray(
				mock.RedisString("path"), mock.RedisString("/sites/default/b.html"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName:    "cms:site:idx",
		Text:         "news",
		Limit:        10,
		ReturnFields: []string{"path", "type"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 7 {
		t.Errorf("Total = %d, want engine-reported 7", res.Total)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "cms:site:doc-1" || e.Score != 1.5 || e.Fields["type"] != "containerpage" {
		t.Errorf("entry = %+v", e)
	}
}

func TestSearch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), &db.SearchQuery{IndexName: "idx", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestSearch_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.Search(context.Background(), &db.SearchQuery{IndexName: "idx", Limit: 10})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped deadline error, got %v", err)
	}
}

func TestSearch_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("idx: no such index")))

	s := NewStoreForTest(c)
	_, err := s.Search(context.Background(), &db.SearchQuery{IndexName: "idx", Limit: 10})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearch_Validation(t *testing.T) {
	s := &Store{}
	_, err := s.Search(context.Background(), &db.SearchQuery{Limit: 10})
	if !errors.Is(err, db.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_Highlights(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" &&
				slices.Contains(cmd, "INKEYS") &&
				slices.Contains(cmd, "HIGHLIGHT") &&
				slices.Contains(cmd, "SUMMARIZE")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("cms:site:doc-1"),
			mock.RedisString("1"),
			mock.RedisArray(
				mock.RedisString("path"), mock.RedisString("/a.html"),
				mock.RedisString("content"),
				mock.RedisString("first <b>news</b>"+summarizeSeparator+" second <b>news</b> "+summarizeSeparator),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName:    "cms:site:idx",
		Text:         "news",
		Limit:        1,
		ReturnFields: []string{"path"},
		InKeys:       []string{"cms:site:doc-1"},
		Highlight: &db.HighlightSpec{
			Fields: []string{"content"}, FragSize: 100, Fragments: 3, Pre: "<b>", Post: "</b>",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := res.Entries[0]
	if _, ok := e.Fields["content"]; ok {
		t.Error("summarized field must move out of Fields")
	}
	want := []string{"first <b>news</b>", "second <b>news</b>"}
	if !slices.Equal(e.Highlights["content"], want) {
		t.Errorf("Highlights = %q, want %q", e.Highlights["content"], want)
	}
}

func TestSearch_Facets(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "FT.SEARCH" && cmd[3] == "WITHSCORES"
			})).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(0)))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "@released:[100 +inf]", "LIMIT", "0", "0", "DIALECT", "2")).
			Return(mock.Result(mock.RedisArray(mock.RedisInt64(4)))),
	)

	from := 100.0
	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "idx",
		Limit:     10,
		Facets:    []db.RangeFacet{{Name: "released", Field: "released", Min: &from}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Facets["released"] != 4 {
		t.Errorf("Facets = %v", res.Facets)
	}
}

func TestBuildSearchArgs(t *testing.T) {
	q := &db.SearchQuery{
		IndexName:    "idx",
		Offset:       5,
		Limit:        30,
		ReturnFields: []string{"path", "type"},
		Sort:         []db.SortKey{{Field: "released", Desc: true}, {Field: "title"}},
		InKeys:       []string{"k1", "k2"},
	}
	got := buildSearchArgs(q, "*")
	want := []string{
		"idx", "*", "WITHSCORES",
		"INKEYS", "2", "k1", "k2",
		"RETURN", "2", "path", "type",
		"SORTBY", "released", "DESC",
		"LIMIT", "5", "30",
		"DIALECT", "2",
	}
	if !slices.Equal(got, want) {
		t.Errorf("args =\n%v\nwant\n%v", got, want)
	}
}

func TestReturnFields_AddsHighlightedFields(t *testing.T) {
	q := &db.SearchQuery{
		ReturnFields: []string{"path"},
		Highlight:    &db.HighlightSpec{Fields: []string{"content", "path"}},
	}
	if got := returnFields(q); !slices.Equal(got, []string{"path", "content"}) {
		t.Errorf("returnFields = %v", got)
	}
	q.ReturnFields = nil
	if got := returnFields(q); got != nil {
		t.Errorf("returnFields = %v, want nil for all fields", got)
	}
}

// --- Query building tests ---

func TestBuildQuery(t *testing.T) {
	locales, _ := filter.Terms("locale", "en", "de")
	roots, _ := filter.Prefix("path", "/sites/default/")

	tests := []struct {
		name string
		q    db.SearchQuery
		want string
	}{
		{"match all", db.SearchQuery{}, "*"},
		{"star", db.SearchQuery{Text: "*"}, "*"},
		{"text", db.SearchQuery{Text: "hello world"}, "(hello world)"},
		{"scoped text", db.SearchQuery{Text: "news", TextFields: []string{"title", "content"}}, "@title|content:(news)"},
		{"filters only", db.SearchQuery{Filters: []filter.Filter{locales}}, "@locale:{en | de}"},
		{
			"text and prefix",
			db.SearchQuery{Text: "news", Filters: []filter.Filter{roots}},
			`(news) @path:{\/sites\/default\/*}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(&tt.q); got != tt.want {
				t.Errorf("buildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildFilter_Empty(t *testing.T) {
	if result := buildFilter(nil); result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestBuildFilter_Terms(t *testing.T) {
	f, _ := filter.Terms("category", "news", "top stories")

	result := buildFilter([]filter.Filter{f})
	if result != `@category:{news | top\ stories}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_Numeric(t *testing.T) {
	lo, hi := 10.0, 100.0
	rng, _ := filter.Between(&lo, &hi)
	f, _ := filter.NewRange("released", rng)

	result := buildFilter([]filter.Filter{f})
	if result != `@released:[10 100]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_Combined(t *testing.T) {
	cat, _ := filter.Terms("category", "books")
	typ, _ := filter.Terms("type", "article")

	result := buildFilter([]filter.Filter{cat, typ})
	if result != `@category:{books} @type:{article}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildNumericFilter(t *testing.T) {
	ms := 1700000000000.0
	since, _ := filter.Between(&ms, nil)
	tests := []struct {
		name string
		r    filter.Range
		want string
	}{
		{"exclusive lower", filter.Above(5), `@price:[(5 +inf]`},
		{"exclusive upper", filter.Below(100), `@price:[-inf (100]`},
		{"millis stay integral", since, `@price:[1700000000000 +inf]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildNumericFilter("price", tt.r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeQuery(t *testing.T) {
	input := `hello "world" @user {tag}`
	escaped := escapeQuery(input)
	expected := `hello \"world\" \@user \{tag\}`
	if escaped != expected {
		t.Errorf("expected %q, got %q", expected, escaped)
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
