package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "internal.example")

	req := &http.Request{URL: &url.URL{Scheme: "https", Host: "generativelanguage.googleapis.com"}}
	got, err := proxy(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secure-proxy:3128", got.Host)

	req = &http.Request{URL: &url.URL{Scheme: "http", Host: "example.org"}}
	got, err = proxy(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "proxy:3128", got.Host)

	req = &http.Request{URL: &url.URL{Scheme: "http", Host: "internal.example"}}
	got, err = proxy(req)
	require.NoError(t, err)
	assert.Nil(t, got, "NO_PROXY host must bypass the proxy")
}

func TestRobotsChecker_Allowed(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&hits, 1)
			_, _ = w.Write([]byte("User-agent: GrantAxiom\nDisallow: /private\n\nUser-agent: *\nDisallow: /\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewRobotsChecker("GrantAxiom/0.1 (+https://example.org)", srv.Client())
	ctx := context.Background()

	ok, err := checker.Allowed(ctx, srv.URL+"/papers/1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.Allowed(ctx, srv.URL+"/private/draft")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "robots.txt should be cached per host")
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	checker := NewRobotsChecker("GrantAxiom/0.1", srv.Client())
	ok, err := checker.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("GrantAxiom/0.1", nil)
	_, err := checker.Allowed(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "GrantAxiom", NormalizeUserAgent("GrantAxiom/0.1 (+https://github.com/ppiankov/grantaxiom)"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}
