package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"cardhub/pkg/models"
)

const basesPage = "Bases"

// BaseExtractor reads the base cards from the wiki's Bases page.
type BaseExtractor struct {
	Client *Client
	Log    *logrus.Entry
}

func NewBaseExtractor(client *Client, log *logrus.Logger) *BaseExtractor {
	return &BaseExtractor{Client: client, Log: log.WithField("extractor", "base")}
}

func (e *BaseExtractor) EntityType() models.EntityType { return models.EntityBase }

func (e *BaseExtractor) Extract(ctx context.Context) (*Extraction, error) {
	doc, url, err := fetchDoc(ctx, e.Client, basesPage)
	if err != nil {
		return nil, pageFailure(models.EntityBase, basesPage, err)
	}

	out := &Extraction{}
	seen := 0
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		text := li.Text()
		base, err := parseBaseRow(text, url)
		if err != nil {
			// The page mixes navigation list items with base rows, so
			// only rows that at least look like bases get a diagnostic.
			if looksLikeBaseRow(text) {
				out.Skipped = append(out.Skipped, RowError{Row: text, Err: err})
			}
			return
		}
		seen++
		out.Records = append(out.Records, base)
	})

	if seen == 0 {
		return nil, pageFailure(models.EntityBase, basesPage, ErrMarkupShapeChanged)
	}
	return out, nil
}
