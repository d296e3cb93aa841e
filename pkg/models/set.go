package models

import "cardhub/pkg/textutil"

// Set is the normalized form of a set/expansion. Factions holds the display
// names of the factions the set contains (membership is by name reference,
// resolved at read time, not a hard foreign key).
type Set struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	ReleaseSlug string   `json:"release_slug,omitempty"`
	Factions    []string `json:"factions"`
	SourceURL   string   `json:"source_url,omitempty"`
}

func (s Set) EntityType() EntityType { return EntitySet }

func (s Set) NaturalKey() string { return textutil.NormalizeKey(s.Name) }

func (s Set) Validate() error {
	if s.NaturalKey() == "" {
		return &ValidationError{Entity: EntitySet, Field: "name", Reason: ReasonMissingKey, Value: s.Name}
	}
	return nil
}
