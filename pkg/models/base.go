package models

import (
	"strconv"

	"cardhub/pkg/textutil"
)

// Base is the normalized form of a base card. Breakpoint is the total minion
// power that scores the base; FirstPlace/SecondPlace/ThirdPlace are the VP
// awards in scoring order.
type Base struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Breakpoint  int    `json:"breakpoint"`
	FirstPlace  int    `json:"first_place"`
	SecondPlace int    `json:"second_place"`
	ThirdPlace  int    `json:"third_place"`
	Effect      string `json:"effect,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

func (b Base) EntityType() EntityType { return EntityBase }

func (b Base) NaturalKey() string { return textutil.NormalizeKey(b.Name) }

// Thresholds returns the VP awards in scoring order (first, second,
// third place). The breakpoint is not an award and stays out.
func (b Base) Thresholds() []int {
	return []int{b.FirstPlace, b.SecondPlace, b.ThirdPlace}
}

func (b Base) Validate() error {
	if b.NaturalKey() == "" {
		return &ValidationError{Entity: EntityBase, Field: "name", Reason: ReasonMissingKey, Value: b.Name}
	}
	fields := []struct {
		name  string
		value int
	}{
		{"breakpoint", b.Breakpoint},
		{"first_place", b.FirstPlace},
		{"second_place", b.SecondPlace},
		{"third_place", b.ThirdPlace},
	}
	for _, f := range fields {
		if f.value < 0 {
			return &ValidationError{Entity: EntityBase, Field: f.name, Reason: ReasonOutOfRange, Value: strconv.Itoa(f.value)}
		}
	}
	return nil
}
