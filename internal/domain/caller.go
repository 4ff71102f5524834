package domain

import (
	"slices"
	"strings"
)

// Guest is the user name of an unauthenticated caller.
const Guest = "Guest"

// Everyone is the principal matching every caller.
const Everyone = "*"

// Caller identifies who is searching. Roles are the ones asserted by the
// calling runtime; stores may know more.
type Caller struct {
	user  string
	roles []string
}

// NewCaller creates a Caller. An empty user becomes Guest.
func NewCaller(user string, roles []string) Caller {
	user = strings.TrimSpace(user)
	if user == "" {
		user = Guest
	}
	clean := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" && !slices.Contains(clean, r) {
			clean = append(clean, r)
		}
	}
	return Caller{user: user, roles: clean}
}

// User returns the caller's user name.
func (c Caller) User() string { return c.user }

// Roles returns the asserted roles.
func (c Caller) Roles() []string { return c.roles }

// IsGuest reports whether the caller is unauthenticated.
func (c Caller) IsGuest() bool { return c.user == Guest || c.user == "" }

// HasRole reports whether role was asserted for the caller.
func (c Caller) HasRole(role string) bool { return slices.Contains(c.roles, role) }

// Principals returns every principal an access entry may name for this caller:
// the user, each role, and Everyone.
func (c Caller) Principals() []string {
	p := make([]string, 0, len(c.roles)+2)
	p = append(p, c.user)
	p = append(p, c.roles...)
	return append(p, Everyone)
}

// Key is a stable cache key for the caller's identity.
func (c Caller) Key() string {
	roles := slices.Clone(c.roles)
	slices.Sort(roles)
	return c.user + "|" + strings.Join(roles, ",")
}
