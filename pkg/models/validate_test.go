package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactionValidate(t *testing.T) {
	assert.NoError(t, Faction{Name: "Robots"}.Validate())

	err := Faction{Name: "   "}.Validate()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ReasonMissingKey, ve.Reason)
	assert.Equal(t, "name", ve.Field)
}

func TestCardValidate(t *testing.T) {
	power := 3
	valid := Card{FactionName: "Robots", Name: "Zapbot", Type: CardMinion, Power: &power}
	assert.NoError(t, valid.Validate())

	actionNoPower := Card{FactionName: "Robots", Name: "Tech Center", Type: CardAction}
	assert.NoError(t, actionNoPower.Validate())

	t.Run("unknown enum", func(t *testing.T) {
		c := valid
		c.Type = "artifact"
		err := c.Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, ReasonUnknownEnum, ve.Reason)
		assert.Equal(t, "type", ve.Field)
	})

	t.Run("negative power", func(t *testing.T) {
		neg := -1
		c := valid
		c.Power = &neg
		err := c.Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, ReasonOutOfRange, ve.Reason)
	})

	t.Run("missing faction", func(t *testing.T) {
		c := valid
		c.FactionName = ""
		err := c.Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, ReasonMissingKey, ve.Reason)
		assert.Equal(t, "faction_name", ve.Field)
	})
}

func TestBaseValidate(t *testing.T) {
	b := Base{Name: "The Mothership", Breakpoint: 20, FirstPlace: 4, SecondPlace: 2, ThirdPlace: 1}
	assert.NoError(t, b.Validate())
	assert.Equal(t, []int{4, 2, 1}, b.Thresholds())

	b.SecondPlace = -2
	err := b.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ReasonOutOfRange, ve.Reason)
	assert.Equal(t, "second_place", ve.Field)
}

func TestNaturalKeysNormalize(t *testing.T) {
	assert.Equal(t, Faction{Name: "Robots "}.NaturalKey(), Faction{Name: "robots"}.NaturalKey())
	assert.Equal(t,
		Card{FactionName: "Aliens", Name: "Invader "}.NaturalKey(),
		Card{FactionName: "aliens ", Name: "invader"}.NaturalKey())
	assert.True(t, IsValidationError(Faction{}.Validate()))
}
