package scraper

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cardhub/pkg/models"
)

// FactionSource supplies the faction names whose pages the card
// extractor should visit. The catalog repository implements it, so a
// card pass reads the factions persisted earlier in the same run.
type FactionSource interface {
	FactionNames(ctx context.Context) ([]string, error)
}

// CardExtractor reads the card rows from every known faction's page.
// Each row's owning faction comes from the page being visited, never
// from the row text. Faction pages are fetched concurrently up to
// Workers at a time; rows within a page are independent so the only
// shared state is the result set.
type CardExtractor struct {
	Client   *Client
	Factions FactionSource
	Workers  int
	Log      *logrus.Entry
}

func NewCardExtractor(client *Client, factions FactionSource, workers int, log *logrus.Logger) *CardExtractor {
	if workers < 1 {
		workers = 1
	}
	return &CardExtractor{
		Client:   client,
		Factions: factions,
		Workers:  workers,
		Log:      log.WithField("extractor", "card"),
	}
}

func (e *CardExtractor) EntityType() models.EntityType { return models.EntityCard }

func (e *CardExtractor) Extract(ctx context.Context) (*Extraction, error) {
	names, err := e.Factions.FactionNames(ctx)
	if err != nil {
		return nil, pageFailure(models.EntityCard, "factions", err)
	}
	if len(names) == 0 {
		return nil, pageFailure(models.EntityCard, "factions", ErrMarkupShapeChanged)
	}

	out := &Extraction{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)

	for _, faction := range names {
		faction := faction
		g.Go(func() error {
			records, skipped, err := e.extractFaction(gctx, faction)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A missing faction page loses its cards, not the run.
				e.Log.WithField("faction", faction).WithError(err).Warn("skipping faction page")
				out.Skipped = append(out.Skipped, RowError{Row: faction, Err: err})
				return nil
			}
			out.Records = append(out.Records, records...)
			out.Skipped = append(out.Skipped, skipped...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pageFailure(models.EntityCard, "factions", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, pageFailure(models.EntityCard, "factions", err)
	}

	if len(out.Records) == 0 && len(out.Skipped) == len(names) {
		return nil, pageFailure(models.EntityCard, "factions", ErrMarkupShapeChanged)
	}
	return out, nil
}

func (e *CardExtractor) extractFaction(ctx context.Context, faction string) ([]models.Record, []RowError, error) {
	doc, url, err := fetchDoc(ctx, e.Client, factionPage(faction))
	if err != nil {
		return nil, nil, err
	}

	var records []models.Record
	var skipped []RowError
	rows := 0
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		span := p.Find("span[id]").First()
		if span.Length() == 0 {
			return
		}
		anchorID, _ := span.Attr("id")
		rows++

		card, err := parseCardRow(anchorID, p.Text(), faction, url)
		if err != nil {
			skipped = append(skipped, RowError{Row: anchorID, Err: err})
			return
		}
		records = append(records, card)
	})

	if rows == 0 {
		return nil, nil, ErrMarkupShapeChanged
	}
	return records, skipped, nil
}
