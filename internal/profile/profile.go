// Package profile resolves a participant's display identity from
// partial, possibly conflicting updates.
package profile

import "strings"

// Profile holds the identity fields known for a participant. An empty
// string means the field is unknown.
type Profile struct {
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Merge combines base with incoming, right-biased: an incoming field wins
// only when it is non-empty after trimming, otherwise the base value is
// kept. Repeated merges converge to the most complete known profile.
func Merge(base, incoming Profile) Profile {
	return Profile{
		DisplayName: pick(base.DisplayName, incoming.DisplayName),
		Username:    pick(base.Username, incoming.Username),
		Avatar:      pick(base.Avatar, incoming.Avatar),
	}
}

func pick(base, incoming string) string {
	if v := strings.TrimSpace(incoming); v != "" {
		return v
	}
	return base
}

// IsZero reports whether no identity field is known.
func (p Profile) IsZero() bool {
	return p.DisplayName == "" && p.Username == "" && p.Avatar == ""
}

// Name returns the best available human-readable name for the
// participant, falling back to the given id.
func (p Profile) Name(id string) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return id
}
