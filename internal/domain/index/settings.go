package index

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Visibility is the project class an index serves.
type Visibility string

const (
	// Online indexes hold published content.
	Online Visibility = "online"
	// Offline indexes hold staging content and need an elevated role.
	Offline Visibility = "offline"
)

// Defaults.
const (
	DefaultRowCap      = 50
	DefaultOfflineRole = "workplace"
	DefaultPostProcess = "none"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Config is the raw per-index configuration.
type Config struct {
	Name             string
	EngineIndex      string
	Visibility       Visibility
	OfflineRole      string
	RowCap           int
	MaxRowsPerPage   int
	MaxRows          int
	Disabled         bool
	AllowedFields    []string
	DebugSecretPath  string
	CheckPermissions *bool
	PostProcessor    string
	LinkPrefix       string
	SiteRoots        []string
}

// Settings is the validated, read-only configuration of one search index.
type Settings struct {
	name             string
	engineIndex      string
	visibility       Visibility
	offlineRole      string
	rowCap           int
	maxRowsPerPage   int
	maxRows          int
	disabled         bool
	allowedFields    []string
	debugSecretPath  string
	checkPermissions bool
	postProcessor    string
	linkPrefix       string
	siteRoots        []string
}

// New validates c once and returns the Settings.
func New(c Config) (Settings, error) {
	if !namePattern.MatchString(c.Name) {
		return Settings{}, fmt.Errorf("invalid index name %q", c.Name)
	}
	s := Settings{
		name:             c.Name,
		engineIndex:      c.EngineIndex,
		visibility:       c.Visibility,
		offlineRole:      c.OfflineRole,
		rowCap:           c.RowCap,
		maxRowsPerPage:   c.MaxRowsPerPage,
		maxRows:          c.MaxRows,
		disabled:         c.Disabled,
		debugSecretPath:  strings.TrimSpace(c.DebugSecretPath),
		checkPermissions: true,
		postProcessor:    c.PostProcessor,
		linkPrefix:       c.LinkPrefix,
		siteRoots:        slices.Clone(c.SiteRoots),
	}
	if c.CheckPermissions != nil {
		s.checkPermissions = *c.CheckPermissions
	}
	if s.engineIndex == "" {
		s.engineIndex = c.Name
	}
	switch s.visibility {
	case "":
		s.visibility = Online
	case Online, Offline:
	default:
		return Settings{}, fmt.Errorf("index %s: visibility must be %q or %q, got %q", c.Name, Online, Offline, c.Visibility)
	}
	if s.offlineRole == "" {
		s.offlineRole = DefaultOfflineRole
	}
	if s.rowCap == 0 {
		s.rowCap = DefaultRowCap
	}
	if s.rowCap < 0 {
		return Settings{}, fmt.Errorf("index %s: row_cap must be positive", c.Name)
	}
	if s.maxRowsPerPage < 0 || s.maxRows < 0 {
		return Settings{}, fmt.Errorf("index %s: row limits must not be negative", c.Name)
	}
	if s.maxRows > 0 && s.maxRowsPerPage > s.maxRows {
		return Settings{}, fmt.Errorf("index %s: max_rows_per_page %d exceeds max_rows %d",
			c.Name, s.maxRowsPerPage, s.maxRows)
	}
	for _, f := range c.AllowedFields {
		f = strings.TrimSpace(f)
		if f == "" || f == "*" {
			return Settings{}, fmt.Errorf("index %s: allowed_fields must name concrete fields", c.Name)
		}
		if !slices.Contains(s.allowedFields, f) {
			s.allowedFields = append(s.allowedFields, f)
		}
	}
	if s.postProcessor == "" {
		s.postProcessor = DefaultPostProcess
	}
	return s, nil
}

// Name returns the public index name.
func (s Settings) Name() string { return s.name }

// EngineIndex returns the engine-side index name.
func (s Settings) EngineIndex() string { return s.engineIndex }

// Visibility returns the project class.
func (s Settings) Visibility() Visibility { return s.visibility }

// IsOnline reports whether the index serves published content.
func (s Settings) IsOnline() bool { return s.visibility == Online }

// OfflineRole returns the role required to search an offline index.
func (s Settings) OfflineRole() string { return s.offlineRole }

// RowCap returns the hard rows ceiling.
func (s Settings) RowCap() int { return s.rowCap }

// MaxRowsPerPage returns the rows limit, 0 for none.
func (s Settings) MaxRowsPerPage() int { return s.maxRowsPerPage }

// MaxRows returns the start+rows limit, 0 for none.
func (s Settings) MaxRows() int { return s.maxRows }

// Disabled reports whether the search handler is switched off.
func (s Settings) Disabled() bool { return s.disabled }

// AllowedFields returns the returnable fields, empty for no restriction.
func (s Settings) AllowedFields() []string { return s.allowedFields }

// DebugSecretPath returns the path of the secret resource, empty when unset.
func (s Settings) DebugSecretPath() string { return s.debugSecretPath }

// CheckPermissions reports whether candidates are permission-checked.
func (s Settings) CheckPermissions() bool { return s.checkPermissions }

// PostProcessor returns the configured post-processor name.
func (s Settings) PostProcessor() string { return s.postProcessor }

// LinkPrefix returns the prefix used by the link post-processor.
func (s Settings) LinkPrefix() string { return s.linkPrefix }

// SiteRoots returns the site roots stripped when computing links.
func (s Settings) SiteRoots() []string { return s.siteRoots }
