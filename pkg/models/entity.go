package models

// EntityType identifies one of the scraped record kinds.
type EntityType string

const (
	EntityFaction EntityType = "faction"
	EntitySet     EntityType = "set"
	EntityBase    EntityType = "base"
	EntityCard    EntityType = "card"
)

// ScrapeOrder is the fixed dependency order for a full run: cards reference
// factions, so factions must be persisted first.
var ScrapeOrder = []EntityType{EntityFaction, EntitySet, EntityBase, EntityCard}

// ParseEntityType maps a wire/CLI name to an EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case EntityFaction, EntitySet, EntityBase, EntityCard:
		return EntityType(s), true
	}
	return "", false
}

// Record is the common shape of a scraped entity before persistence.
// NaturalKey returns the normalized unique key used for upserts; Validate
// reports the first field constraint violation, if any.
type Record interface {
	EntityType() EntityType
	NaturalKey() string
	Validate() error
}
