package models

import (
	"fmt"
	"strconv"

	"cardhub/pkg/textutil"
)

// CardType is the enumerated kind of a playable card.
type CardType string

const (
	CardMinion CardType = "minion"
	CardAction CardType = "action"
)

// KnownCardTypes is the closed set of accepted card type values.
var KnownCardTypes = map[CardType]bool{
	CardMinion: true,
	CardAction: true,
}

// Card is the normalized form of a playable card. A card is unique within
// its faction; FactionName must resolve to a stored faction before the card
// row can be committed. Power is nil for cards without a printed power
// (actions, and minions whose cell held a placeholder).
type Card struct {
	ID          int64    `json:"id,omitempty"`
	FactionName string   `json:"faction_name"`
	Name        string   `json:"name"`
	Type        CardType `json:"type"`
	Power       *int     `json:"power"`
	Effect      string   `json:"effect,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}

func (c Card) EntityType() EntityType { return EntityCard }

// NaturalKey is the composite (faction, name) key.
func (c Card) NaturalKey() string {
	return fmt.Sprintf("%s/%s", textutil.NormalizeKey(c.FactionName), textutil.NormalizeKey(c.Name))
}

func (c Card) Validate() error {
	if textutil.NormalizeKey(c.Name) == "" {
		return &ValidationError{Entity: EntityCard, Field: "name", Reason: ReasonMissingKey, Value: c.Name}
	}
	if textutil.NormalizeKey(c.FactionName) == "" {
		return &ValidationError{Entity: EntityCard, Field: "faction_name", Reason: ReasonMissingKey, Value: c.FactionName}
	}
	if !KnownCardTypes[c.Type] {
		return &ValidationError{Entity: EntityCard, Field: "type", Reason: ReasonUnknownEnum, Value: string(c.Type)}
	}
	if c.Power != nil && *c.Power < 0 {
		return &ValidationError{Entity: EntityCard, Field: "power", Reason: ReasonOutOfRange, Value: strconv.Itoa(*c.Power)}
	}
	return nil
}
