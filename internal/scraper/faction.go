package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"cardhub/pkg/models"
	"cardhub/pkg/textutil"
)

// FactionExtractor discovers factions through the set galleries and
// reads each faction's own page for its description.
type FactionExtractor struct {
	Client *Client
	Log    *logrus.Entry
}

func NewFactionExtractor(client *Client, log *logrus.Logger) *FactionExtractor {
	return &FactionExtractor{Client: client, Log: log.WithField("extractor", "faction")}
}

func (e *FactionExtractor) EntityType() models.EntityType { return models.EntityFaction }

func (e *FactionExtractor) Extract(ctx context.Context) (*Extraction, error) {
	slugs, err := listSetSlugs(ctx, e.Client)
	if err != nil {
		return nil, pageFailure(models.EntityFaction, setsCategoryPage, err)
	}

	out := &Extraction{}
	seen := make(map[string]bool)

	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return nil, pageFailure(models.EntityFaction, slug, err)
		}

		names, _, err := setFactions(ctx, e.Client, slug)
		if err != nil {
			e.Log.WithField("set", slug).WithError(err).Warn("skipping set gallery")
			out.Skipped = append(out.Skipped, RowError{Row: slug, Err: err})
			continue
		}

		for _, name := range names {
			key := textutil.NormalizeKey(name)
			if seen[key] {
				continue
			}
			seen[key] = true

			desc, url, err := e.factionDescription(ctx, name)
			if err != nil {
				e.Log.WithField("faction", name).WithError(err).Warn("skipping faction page")
				out.Skipped = append(out.Skipped, RowError{Row: name, Err: err})
				continue
			}

			out.Records = append(out.Records, models.Faction{
				Name:        name,
				Description: desc,
				SourceURL:   url,
			})
		}
	}

	if len(out.Records) == 0 && len(out.Skipped) == 0 {
		return nil, pageFailure(models.EntityFaction, setsCategoryPage, ErrMarkupShapeChanged)
	}
	return out, nil
}

// factionDescription fetches a faction page and takes its leading
// prose paragraph, skipping the anchored card rows.
func (e *FactionExtractor) factionDescription(ctx context.Context, name string) (string, string, error) {
	doc, url, err := fetchDoc(ctx, e.Client, factionPage(name))
	if err != nil {
		return "", "", err
	}

	desc := ""
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if p.Find("span[id]").Length() > 0 {
			return true
		}
		if t := textutil.CleanText(p.Text()); t != "" {
			desc = t
			return false
		}
		return true
	})
	return desc, url, nil
}
