package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardhub/pkg/database"
	"cardhub/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(db)
}

func intPtr(n int) *int { return &n }

func sampleFactions() []models.Record {
	return []models.Record{
		models.Faction{Name: "Robots", Description: "Relentless machines.", SourceURL: "https://example.org/Robots"},
		models.Faction{Name: "Zombies", Description: "They keep coming back.", SourceURL: "https://example.org/Zombies"},
	}
}

func TestUpsertBatchInsertThenUnchanged(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.UpsertBatch(ctx, models.EntityFaction, sampleFactions())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Unchanged)

	// Same payload again must converge with no writes.
	res, err = repo.UpsertBatch(ctx, models.EntityFaction, sampleFactions())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 2, res.Unchanged)
}

func TestUpsertKeepsFirstSeenCasing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, models.Faction{Name: "Robots ", Description: "v1"})
	require.NoError(t, err)

	out, err := repo.Upsert(ctx, models.Faction{Name: "robots", Description: "v2"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, out)

	n, err := repo.CountFactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := repo.GetFactionByName(ctx, "ROBOTS")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Robots", f.Name)
	assert.Equal(t, "v2", f.Description)
}

func TestUpsertFactionUpdatedOutcome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	out, err := repo.Upsert(ctx, models.Faction{Name: "Pirates", Description: "old"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, out)

	out, err = repo.Upsert(ctx, models.Faction{Name: "Pirates", Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, out)

	out, err = repo.Upsert(ctx, models.Faction{Name: "Pirates", Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, out)
}

func TestUpsertCardResolvesFaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, models.Faction{Name: "Robots"})
	require.NoError(t, err)

	card := models.Card{
		FactionName: "Robots",
		Name:        "Zapbot",
		Type:        models.CardMinion,
		Power:       intPtr(2),
		Effect:      "Play an extra minion of power 2 or less.",
	}
	out, err := repo.Upsert(ctx, card)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, out)

	got, err := repo.GetCard(ctx, "robots", "zapbot")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Zapbot", got.Name)
	assert.Equal(t, "Robots", got.FactionName)
	require.NotNil(t, got.Power)
	assert.Equal(t, 2, *got.Power)
}

func TestUpsertCardMissingFactionSkipsRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, models.Faction{Name: "Robots"})
	require.NoError(t, err)

	batch := []models.Record{
		models.Card{FactionName: "Robots", Name: "Zapbot", Type: models.CardMinion, Power: intPtr(2)},
		models.Card{FactionName: "Ghosts", Name: "Spectre", Type: models.CardMinion, Power: intPtr(2)},
	}

	res, err := repo.UpsertBatch(ctx, models.EntityCard, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.SkippedCauses, 1)
	assert.True(t, IsMissingDependency(res.SkippedCauses[0]))

	// The skipped row must not block the rest of the batch.
	n, err := repo.CountCards(ctx, CardQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertCardNullPower(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, models.Faction{Name: "Wizards"})
	require.NoError(t, err)

	action := models.Card{FactionName: "Wizards", Name: "Summon", Type: models.CardAction, Effect: "Play an extra minion."}
	out, err := repo.Upsert(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, out)

	out, err = repo.Upsert(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, out)

	got, err := repo.GetCard(ctx, "wizards", "summon")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Power)
}

func TestUpsertSetMembership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	set := models.Set{
		Name:        "Core Set",
		ReleaseSlug: "Core_Set",
		Factions:    []string{"Robots", "Zombies", "Pirates", "Ninjas"},
	}
	out, err := repo.Upsert(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, out)

	out, err = repo.Upsert(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, out)

	// Changing membership is an update, and the new list replaces the old one.
	set.Factions = []string{"Robots", "Zombies", "Pirates", "Wizards"}
	out, err = repo.Upsert(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, out)

	got, err := repo.GetSetByName(ctx, "core set")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Robots", "Zombies", "Pirates", "Wizards"}, got.Factions)
}

func TestUpsertBase(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := models.Base{
		Name:        "The Homeworld",
		Breakpoint:  22,
		FirstPlace:  4,
		SecondPlace: 2,
		ThirdPlace:  1,
		Effect:      "After each time a minion is played here, its owner may play an extra minion of power 2 or less.",
	}
	out, err := repo.Upsert(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, out)

	base.Breakpoint = 23
	out, err = repo.Upsert(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, out)

	got, err := repo.GetBaseByName(ctx, "the homeworld")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 23, got.Breakpoint)
	assert.Equal(t, []int{4, 2, 1}, got.Thresholds())
}

func TestUpsertBatchRejectsMixedTypes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, models.EntityFaction, []models.Record{
		models.Base{Name: "The Mothership", Breakpoint: 20, FirstPlace: 4, SecondPlace: 2, ThirdPlace: 1},
	})
	assert.Error(t, err)
}

func TestListCardsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, models.EntityFaction, sampleFactions())
	require.NoError(t, err)

	cards := []models.Record{
		models.Card{FactionName: "Robots", Name: "Zapbot", Type: models.CardMinion, Power: intPtr(2)},
		models.Card{FactionName: "Robots", Name: "Tech Center", Type: models.CardAction},
		models.Card{FactionName: "Zombies", Name: "Walker", Type: models.CardMinion, Power: intPtr(2)},
	}
	res, err := repo.UpsertBatch(ctx, models.EntityCard, cards)
	require.NoError(t, err)
	require.Equal(t, 3, res.Inserted)

	robots, err := repo.ListCards(ctx, CardQuery{Faction: "robots"})
	require.NoError(t, err)
	assert.Len(t, robots, 2)

	minions, err := repo.ListCards(ctx, CardQuery{Type: "minion"})
	require.NoError(t, err)
	assert.Len(t, minions, 2)

	names, err := repo.FactionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Robots", "Zombies"}, names)
}
