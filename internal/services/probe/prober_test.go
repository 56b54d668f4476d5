package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProber(t *testing.T) *Prober {
	t.Helper()
	return New(Config{
		ConnectTimeout:  2 * time.Second,
		TotalTimeout:    2 * time.Second,
		UserAgent:       "test-agent/1.0",
		FollowRedirects: true,
	})
}

func TestProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := testProber(t).Do(context.Background(), srv.URL)

	require.NotNil(t, out.HTTPCode)
	assert.Equal(t, http.StatusOK, *out.HTTPCode)
	assert.Empty(t, out.Error)
	require.NotNil(t, out.ResponseTimeMs)
	assert.Greater(t, *out.ResponseTimeMs, 0.0)
	assert.False(t, out.CheckedAt.IsZero())
}

func TestProbeRecordsErrorStatusAsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	out := testProber(t).Do(context.Background(), srv.URL)

	// a 404 is a completed exchange, not a transport error
	require.NotNil(t, out.HTTPCode)
	assert.Equal(t, http.StatusNotFound, *out.HTTPCode)
	assert.Empty(t, out.Error)
}

func TestProbeFollowsRedirects(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	out := testProber(t).Do(context.Background(), target.URL+"/moved")
	require.NotNil(t, out.HTTPCode)
	assert.Equal(t, http.StatusOK, *out.HTTPCode)
}

func TestProbeReportsLastResponseWhenNotFollowing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	p := New(Config{TotalTimeout: 2 * time.Second, FollowRedirects: false})
	out := p.Do(context.Background(), srv.URL)

	require.NotNil(t, out.HTTPCode)
	assert.Equal(t, http.StatusFound, *out.HTTPCode)
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := New(Config{ConnectTimeout: time.Second, TotalTimeout: 100 * time.Millisecond})
	out := p.Do(context.Background(), srv.URL)

	assert.Nil(t, out.HTTPCode)
	assert.True(t, strings.HasPrefix(out.Error, "timeout:"), "got %q", out.Error)
	require.NotNil(t, out.ResponseTimeMs)
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens here anymore

	out := testProber(t).Do(context.Background(), url)

	assert.Nil(t, out.HTTPCode)
	assert.NotEmpty(t, out.Error)
}

func TestProbeInvalidURL(t *testing.T) {
	out := testProber(t).Do(context.Background(), "http://bad url with spaces")

	assert.Nil(t, out.HTTPCode)
	assert.NotEmpty(t, out.Error)
	assert.False(t, out.CheckedAt.IsZero())
}

func TestProbeNeverPanicsOnGarbage(t *testing.T) {
	for _, u := range []string{"", ":", "http://", "not-a-url"} {
		out := testProber(t).Do(context.Background(), u)
		assert.NotEmpty(t, out.Error, "url %q must yield an error outcome", u)
	}
}
