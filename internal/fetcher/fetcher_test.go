package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>  Roth
			IRA basics </title><style>body{}</style></head>
			<body><nav>menu</nav><h1>Conversions</h1><p>Move money   from a traditional IRA.</p>
			<script>alert(1)</script><footer>legal</footer></body></html>`))
	}))
	defer srv.Close()

	page, err := Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Roth IRA basics", page.Title)
	assert.Equal(t, "Conversions Move money from a traditional IRA.", page.Text)
	assert.Equal(t, srv.URL, page.URL)
}

func TestFetchFallsBackToHostTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>just text</p>`))
	}))
	defer srv.Close()

	page, err := Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), page.Title)
}

func TestFetchErrors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<script>only()</script>`))
	}))
	defer empty.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	_, err := Fetch(context.Background(), empty.URL)
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = Fetch(context.Background(), missing.URL)
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = Fetch(context.Background(), "ftp://example.com/file")
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestNormalize(t *testing.T) {
	u, err := Normalize("www.example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/a", u.String())

	_, err = Normalize("https://")
	assert.Error(t, err)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10)
	out := truncate(s, 5)
	assert.Equal(t, "éé...", out)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL(" https://example.com"))
	assert.True(t, IsURL("www.example.com"))
	assert.False(t, IsURL("just a note"))
}
