package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardhub/pkg/models"
)

// fixtureServer serves testdata files under /wiki/ paths.
func fixtureServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for page, fixture := range pages {
		body, err := os.ReadFile(filepath.Join("testdata", fixture))
		require.NoError(t, err)
		mux.HandleFunc("/wiki/"+page, func(w http.ResponseWriter, r *http.Request) {
			w.Write(body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type staticFactions []string

func (s staticFactions) FactionNames(ctx context.Context) ([]string, error) {
	return s, nil
}

func TestCardExtractor(t *testing.T) {
	srv := fixtureServer(t, map[string]string{
		"Robots":  "faction_robots.html",
		"Zombies": "faction_zombies.html",
	})

	ext := NewCardExtractor(testClient(srv.URL+"/wiki/", 0), staticFactions{"Robots", "Zombies"}, 2, testLogger())
	out, err := ext.Extract(context.Background())
	require.NoError(t, err)

	byName := make(map[string]models.Card)
	for _, r := range out.Records {
		c := r.(models.Card)
		byName[c.Name] = c
	}
	require.Len(t, byName, 5)

	zapbot := byName["Zapbot"]
	assert.Equal(t, models.CardMinion, zapbot.Type)
	assert.Equal(t, "Robots", zapbot.FactionName)
	require.NotNil(t, zapbot.Power)
	assert.Equal(t, 2, *zapbot.Power)
	assert.Equal(t, "You may play an extra minion of power 2 or less.", zapbot.Effect)

	tech := byName["Tech Center"]
	assert.Equal(t, models.CardAction, tech.Type)
	assert.Nil(t, tech.Power)

	walker := byName["Walker"]
	assert.Equal(t, "Zombies", walker.FactionName)

	// the malformed Broken Bot row is skipped, not fatal
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "Broken_Bot", out.Skipped[0].Row)
}

func TestCardExtractorUnreachableFactionIsSkipped(t *testing.T) {
	srv := fixtureServer(t, map[string]string{
		"Robots": "faction_robots.html",
	})

	ext := NewCardExtractor(testClient(srv.URL+"/wiki/", 0), staticFactions{"Robots", "Ghosts"}, 2, testLogger())
	out, err := ext.Extract(context.Background())
	require.NoError(t, err)

	assert.Len(t, out.Records, 3)

	found := false
	for _, re := range out.Skipped {
		if re.Row == "Ghosts" {
			found = true
			var fe *FetchError
			assert.True(t, errors.As(re.Err, &fe))
		}
	}
	assert.True(t, found, "missing faction page should appear as a skip")
}

func TestCardExtractorMarkupShapeChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><div>no card rows here</div></body></html>"))
	}))
	defer srv.Close()

	ext := NewCardExtractor(testClient(srv.URL+"/wiki/", 0), staticFactions{"Robots"}, 1, testLogger())
	_, err := ext.Extract(context.Background())
	require.Error(t, err)

	var ee *ExtractorError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, models.EntityCard, ee.Entity)
}

func TestSetExtractor(t *testing.T) {
	srv := fixtureServer(t, map[string]string{
		"Category:Sets":      "sets_category.html",
		"Core_Set":           "set_core.html",
		"Awesome_Level_9000": "set_awesome.html",
	})

	ext := NewSetExtractor(testClient(srv.URL+"/wiki/", 0), testLogger())
	out, err := ext.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Records, 2)

	core := out.Records[0].(models.Set)
	assert.Equal(t, "Core Set", core.Name)
	assert.Equal(t, "Core_Set", core.ReleaseSlug)
	// duplicate gallery entries collapse, empty alts are dropped
	assert.Equal(t, []string{"Robots", "Zombies"}, core.Factions)

	awesome := out.Records[1].(models.Set)
	assert.Equal(t, []string{"Ghosts", "Bear Cavalry"}, awesome.Factions)
}

func TestSetExtractorCategoryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ext := NewSetExtractor(testClient(srv.URL+"/wiki/", 0), testLogger())
	_, err := ext.Extract(context.Background())

	var ee *ExtractorError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, models.EntitySet, ee.Entity)
	assert.True(t, IsPermanentFetch(ee.Cause))
}

func TestFactionExtractor(t *testing.T) {
	srv := fixtureServer(t, map[string]string{
		"Category:Sets":      "sets_category.html",
		"Core_Set":           "set_core.html",
		"Awesome_Level_9000": "set_awesome.html",
		"Robots":             "faction_robots.html",
		"Zombies":            "faction_zombies.html",
	})

	ext := NewFactionExtractor(testClient(srv.URL+"/wiki/", 0), testLogger())
	out, err := ext.Extract(context.Background())
	require.NoError(t, err)

	byName := make(map[string]models.Faction)
	for _, r := range out.Records {
		f := r.(models.Faction)
		byName[f.Name] = f
	}
	require.Contains(t, byName, "Robots")
	require.Contains(t, byName, "Zombies")
	assert.Equal(t, "The Robots are a relentless tide of mass-produced machines that win through sheer numbers.", byName["Robots"].Description)

	// Ghosts and Bear Cavalry have no pages on this server, so they
	// surface as skips rather than records.
	assert.Len(t, out.Skipped, 2)
}

func TestBaseExtractor(t *testing.T) {
	srv := fixtureServer(t, map[string]string{
		"Bases": "bases.html",
	})

	ext := NewBaseExtractor(testClient(srv.URL+"/wiki/", 0), testLogger())
	out, err := ext.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Records, 2)

	homeworld := out.Records[0].(models.Base)
	assert.Equal(t, "The Homeworld", homeworld.Name)
	assert.Equal(t, 22, homeworld.Breakpoint)
	assert.Equal(t, []int{4, 2, 1}, homeworld.Thresholds())

	// the unparsable breakpoint row is a diagnostic, the nav rows are not
	require.Len(t, out.Skipped, 1)
	assert.Contains(t, out.Skipped[0].Row, "Broken Base")
}

func TestBaseExtractorMarkupShapeChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))
	defer srv.Close()

	ext := NewBaseExtractor(testClient(srv.URL+"/wiki/", 0), testLogger())
	_, err := ext.Extract(context.Background())

	var ee *ExtractorError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, ErrMarkupShapeChanged)
}
