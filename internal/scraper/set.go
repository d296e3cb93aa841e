package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"cardhub/pkg/models"
	"cardhub/pkg/textutil"
)

const setsCategoryPage = "Category:Sets"

// SetExtractor discovers the published sets from the wiki's set
// category and reads each set's faction gallery.
type SetExtractor struct {
	Client *Client
	Log    *logrus.Entry
}

func NewSetExtractor(client *Client, log *logrus.Logger) *SetExtractor {
	return &SetExtractor{Client: client, Log: log.WithField("extractor", "set")}
}

func (e *SetExtractor) EntityType() models.EntityType { return models.EntitySet }

func (e *SetExtractor) Extract(ctx context.Context) (*Extraction, error) {
	slugs, err := listSetSlugs(ctx, e.Client)
	if err != nil {
		return nil, pageFailure(models.EntitySet, setsCategoryPage, err)
	}

	out := &Extraction{}
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return nil, pageFailure(models.EntitySet, slug, err)
		}

		factions, url, err := setFactions(ctx, e.Client, slug)
		if err != nil {
			// One unreachable set page loses that set, not the run.
			e.Log.WithField("set", slug).WithError(err).Warn("skipping set page")
			out.Skipped = append(out.Skipped, RowError{Row: slug, Err: err})
			continue
		}

		out.Records = append(out.Records, models.Set{
			Name:        textutil.CleanText(strings.ReplaceAll(slug, "_", " ")),
			ReleaseSlug: slug,
			Factions:    factions,
			SourceURL:   url,
		})
	}
	return out, nil
}

// listSetSlugs reads the set category page and returns the wiki page
// slugs of every linked set.
func listSetSlugs(ctx context.Context, c *Client) ([]string, error) {
	doc, _, err := fetchDoc(ctx, c, setsCategoryPage)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var slugs []string
	doc.Find("ul a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		slug, ok := setSlugFromHref(href)
		if !ok || seen[slug] {
			return
		}
		seen[slug] = true
		slugs = append(slugs, slug)
	})

	if len(slugs) == 0 {
		return nil, ErrMarkupShapeChanged
	}
	return slugs, nil
}

// setSlugFromHref filters category-page links down to actual set
// pages, rejecting namespace links and wiki chrome.
func setSlugFromHref(href string) (string, bool) {
	if !strings.HasPrefix(href, "/wiki/") {
		return "", false
	}
	slug := strings.TrimPrefix(href, "/wiki/")
	if slug == "" || slug == "Main_Page" {
		return "", false
	}
	for _, ns := range []string{"Category:", "Special:", "File:", "User:", "Template:"} {
		if strings.HasPrefix(slug, ns) {
			return "", false
		}
	}
	if strings.HasSuffix(slug, "_Wiki") {
		return "", false
	}
	return slug, true
}

// setFactions reads a set page's faction gallery and returns the
// faction display names it shows.
func setFactions(ctx context.Context, c *Client, slug string) ([]string, string, error) {
	doc, url, err := fetchDoc(ctx, c, slug)
	if err != nil {
		return nil, "", err
	}

	gallery := doc.Find("div.wikia-gallery").First()
	if gallery.Length() == 0 {
		gallery = doc.Find("div[id^=gallery-]").First()
	}
	if gallery.Length() == 0 {
		return nil, "", ErrMarkupShapeChanged
	}

	seen := make(map[string]bool)
	var factions []string
	gallery.Find("img[alt]").Each(func(_ int, img *goquery.Selection) {
		alt, _ := img.Attr("alt")
		name := textutil.CleanText(alt)
		if name == "" {
			return
		}
		key := textutil.NormalizeKey(name)
		if seen[key] {
			return
		}
		seen[key] = true
		factions = append(factions, name)
	})

	if len(factions) == 0 {
		return nil, "", ErrMarkupShapeChanged
	}
	return factions, url, nil
}
