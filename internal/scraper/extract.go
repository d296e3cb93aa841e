package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cardhub/pkg/models"
)

// ErrMarkupShapeChanged means a page was fetched but none of the
// expected elements were present. It is treated as a page-level
// failure, never as "zero records".
var ErrMarkupShapeChanged = errors.New("page markup shape changed")

// Extractor produces the records of one entity type. Each Extract call
// re-fetches and re-parses from scratch; extractors hold no cross-call
// state.
type Extractor interface {
	EntityType() models.EntityType
	Extract(ctx context.Context) (*Extraction, error)
}

// Extraction is the outcome of one extractor pass over the wiki.
// Records carries every row that mapped cleanly; Skipped carries a
// diagnostic per row that did not.
type Extraction struct {
	Records []models.Record
	Skipped []RowError
}

// RowError records a single malformed row that was skipped.
type RowError struct {
	Row string
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %q: %v", truncate(e.Row, 60), e.Err)
}

// ExtractorError is a page-level failure that aborts one extractor's
// run: the page was unreachable, or its shape no longer matches.
type ExtractorError struct {
	Entity models.EntityType
	Page   string
	Cause  error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Entity, e.Page, e.Cause)
}

func (e *ExtractorError) Unwrap() error { return e.Cause }

func pageFailure(entity models.EntityType, page string, cause error) error {
	return &ExtractorError{Entity: entity, Page: page, Cause: cause}
}

// fetchDoc retrieves a page and parses it. Fetch and parse failures
// both count as page-level failures for the calling extractor.
func fetchDoc(ctx context.Context, c *Client, page string) (*goquery.Document, string, error) {
	p, err := c.Fetch(ctx, page)
	if err != nil {
		return nil, "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", p.URL, err)
	}
	return doc, p.URL, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
