package models

import "cardhub/pkg/textutil"

// Faction is the normalized form of a faction entry. The scraper maps wiki
// pages into this structure first, then the catalog writes it from here.
type Faction struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

func (f Faction) EntityType() EntityType { return EntityFaction }

func (f Faction) NaturalKey() string { return textutil.NormalizeKey(f.Name) }

func (f Faction) Validate() error {
	if f.NaturalKey() == "" {
		return &ValidationError{Entity: EntityFaction, Field: "name", Reason: ReasonMissingKey, Value: f.Name}
	}
	return nil
}
