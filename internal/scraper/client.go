package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"cardhub/pkg/utils"
)

// FetchKind classifies a failed page fetch.
type FetchKind string

const (
	// FetchTransient is a retryable failure (network error, 5xx, 429)
	// that still has retry budget left.
	FetchTransient FetchKind = "transient"
	// FetchExhausted means every allowed attempt failed.
	FetchExhausted FetchKind = "exhausted"
	// FetchPermanent is a non-retryable failure such as a 404; it is
	// reported after a single attempt.
	FetchPermanent FetchKind = "permanent"
)

// FetchError is returned by Client.Fetch when a page could not be
// retrieved.
type FetchError struct {
	Kind       FetchKind
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d, %d attempts)", e.URL, e.Kind, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %s (%d attempts): %v", e.URL, e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsPermanentFetch reports whether err is a fetch failure that retrying
// cannot fix.
func IsPermanentFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchPermanent
}

// Page is the result of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       string
}

// Client fetches wiki pages with bounded retries. Retries apply to
// network errors and to 5xx / 429 responses; other 4xx responses fail
// immediately.
type Client struct {
	rest *resty.Client
	base string
	log  *logrus.Entry
}

// NewClient builds a Client from scrape configuration. BaseURL is the
// wiki prefix that page names are resolved against. ConnectTimeout
// bounds dialing; ReadTimeout bounds the whole request.
func NewClient(cfg utils.ScrapeConfig, log *logrus.Logger) *Client {
	rest := resty.New().
		SetTransport(&http.Transport{
			DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		}).
		SetTimeout(cfg.ReadTimeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.BackoffBase).
		SetRetryMaxWaitTime(cfg.BackoffCap).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return retryableStatus(r.StatusCode())
		})

	return &Client{
		rest: rest,
		base: strings.TrimRight(cfg.BaseURL, "/") + "/",
		log:  log.WithField("component", "fetch"),
	}
}

// PageURL resolves a wiki page name against the configured base URL.
// Absolute URLs pass through unchanged.
func (c *Client) PageURL(page string) string {
	if strings.HasPrefix(page, "http://") || strings.HasPrefix(page, "https://") {
		return page
	}
	return c.base + strings.TrimLeft(page, "/")
}

// Fetch retrieves a single wiki page. The context bounds the whole
// attempt sequence including backoff waits.
func (c *Client) Fetch(ctx context.Context, page string) (*Page, error) {
	url := c.PageURL(page)

	resp, err := c.rest.R().SetContext(ctx).Get(url)
	attempts := 1
	if resp != nil {
		attempts += resp.Request.Attempt - 1
	}

	if err != nil {
		c.log.WithField("url", url).WithError(err).Warn("fetch failed")
		return nil, &FetchError{Kind: FetchExhausted, URL: url, Attempts: attempts, Err: err}
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusOK:
		return &Page{
			URL:        url,
			FinalURL:   resp.Request.URL,
			StatusCode: status,
			Body:       string(resp.Body()),
		}, nil
	case retryableStatus(status):
		// resty already spent the retry budget on these.
		c.log.WithFields(logrus.Fields{"url": url, "status": status}).Warn("fetch exhausted retries")
		return nil, &FetchError{Kind: FetchExhausted, URL: url, StatusCode: status, Attempts: attempts}
	default:
		c.log.WithFields(logrus.Fields{"url": url, "status": status}).Warn("fetch rejected")
		return nil, &FetchError{Kind: FetchPermanent, URL: url, StatusCode: status, Attempts: attempts}
	}
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}
