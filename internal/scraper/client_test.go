package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardhub/pkg/utils"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testClient(baseURL string, retries int) *Client {
	cfg := utils.ScrapeConfig{
		BaseURL:        baseURL,
		UserAgent:      "cardhub-test",
		ConnectTimeout: time.Second,
		ReadTimeout:    5 * time.Second,
		MaxRetries:     retries,
		BackoffBase:    time.Millisecond,
		BackoffCap:     5 * time.Millisecond,
	}
	return NewClient(cfg, testLogger())
}

func TestFetchFailsFastOnUnreachableHost(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET; connects there hang until the dial
	// deadline, so a short ConnectTimeout must cut the attempt off.
	cfg := utils.ScrapeConfig{
		BaseURL:        "http://192.0.2.1/wiki/",
		UserAgent:      "cardhub-test",
		ConnectTimeout: 50 * time.Millisecond,
		ReadTimeout:    5 * time.Second,
	}
	c := NewClient(cfg, testLogger())

	start := time.Now()
	_, err := c.Fetch(context.Background(), "Robots")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FetchExhausted, fe.Kind)
}

func TestFetchRecoversFromTransientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/wiki/", 3)
	page, err := c.Fetch(context.Background(), "Robots")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/wiki/", 2)
	_, err := c.Fetch(context.Background(), "Robots")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FetchExhausted, fe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	// retry cap of 2 means 3 total attempts
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchDoesNotRetryPermanentFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/wiki/", 3)
	_, err := c.Fetch(context.Background(), "No_Such_Page")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FetchPermanent, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.True(t, IsPermanentFetch(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchRetriesRateLimiting(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/wiki/", 3)
	_, err := c.Fetch(context.Background(), "Robots")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPageURL(t *testing.T) {
	c := testClient("https://smashup.fandom.com/wiki/", 0)
	assert.Equal(t, "https://smashup.fandom.com/wiki/Robots", c.PageURL("Robots"))
	assert.Equal(t, "https://example.org/x", c.PageURL("https://example.org/x"))
}
