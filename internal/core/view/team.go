package view

import (
	"strings"

	"github.com/electrix/tracker/internal/core/domain"
)

// Team is the roster of every profile visible to the viewer.
type Team struct {
	Meta

	Profiles []domain.Profile `json:"profiles"`
	// ResetID is the profile whose password form is open.
	ResetID string `json:"reset_id,omitempty"`
}

// Filtered returns the profiles whose name, RUT or role contains q, ignoring
// case. An empty query matches everything.
func (v *Team) Filtered(q string) []domain.Profile {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return v.Profiles
	}
	out := make([]domain.Profile, 0, len(v.Profiles))
	for _, p := range v.Profiles {
		if strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(strings.ToLower(p.RUT), q) ||
			strings.Contains(strings.ToLower(string(p.Role)), q) {
			out = append(out, p)
		}
	}
	return out
}

func (v *Team) Find(id string) (domain.Profile, bool) {
	for _, p := range v.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Profile{}, false
}

func (v *Team) Replace(p domain.Profile) {
	v.Profiles = replaceFunc(v.Profiles, func(x domain.Profile) bool { return x.ID == p.ID }, p)
}

func (v *Team) Remove(id string) {
	v.Profiles = removeFunc(v.Profiles, func(x domain.Profile) bool { return x.ID == id })
	if v.ResetID == id {
		v.ResetID = ""
	}
}
