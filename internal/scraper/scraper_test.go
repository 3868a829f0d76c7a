package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexPage = `<html><body>
<nav class="menu">
  <a href="/wiki/Home">Home</a>
  <a href="/wiki/Species">Species</a>
  <a href="/wiki/Species#attributes">Species attributes</a>
  <a href="#top">Top</a>
</nav>
<div class="markdown">index</div>
</body></html>`

func newDocsServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Using-extensions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage))
	})
	mux.HandleFunc("/wiki/Home", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><nav>menu</nav><div class="markdown">GAMA is a platform. It runs models.</div></body></html>`))
	})
	mux.HandleFunc("/wiki/Species", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="other">no markdown here</div></body></html>`))
	})
	mux.HandleFunc("/wiki/Broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://gama-platform.org/wiki/Home", "gama-platform.org-wiki-Home.txt"},
		{"http://127.0.0.1:8080/wiki/Species", "127.0.0.1-8080-wiki-Species.txt"},
		{"gama-platform.org/wiki/Home", "gama-platform.org-wiki-Home.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := FileName(tt.url)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, ":")
		})
	}
}

func TestScraper_Discover(t *testing.T) {
	srv := newDocsServer(t)
	s := New(srv.Client(), Config{OutputDir: t.TempDir()})

	urls, err := s.Discover(context.Background(), srv.URL+"/wiki/Using-extensions", "nav.menu a")

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/wiki/Home", srv.URL + "/wiki/Species"}, urls)
}

func TestScraper_Discover_NoMatch(t *testing.T) {
	srv := newDocsServer(t)
	s := New(srv.Client(), Config{OutputDir: t.TempDir()})

	_, err := s.Discover(context.Background(), srv.URL+"/wiki/Using-extensions", "nav.sidebar a")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nav.sidebar a")
}

func TestScraper_Scrape_WithSelector(t *testing.T) {
	srv := newDocsServer(t)
	out := t.TempDir()
	s := New(srv.Client(), Config{OutputDir: out, ContentSelector: "div.markdown"})

	home := srv.URL + "/wiki/Home"
	written, err := s.Scrape(context.Background(), []string{home, srv.URL + "/wiki/Species"})

	require.NoError(t, err)
	assert.Equal(t, 1, written)

	data, err := os.ReadFile(filepath.Join(out, FileName(home)))
	require.NoError(t, err)
	assert.Equal(t, "GAMA is a platform. It runs models.", string(data))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestScraper_Scrape_WholePage(t *testing.T) {
	srv := newDocsServer(t)
	out := t.TempDir()
	s := New(srv.Client(), Config{OutputDir: out})

	home := srv.URL + "/wiki/Home"
	written, err := s.Scrape(context.Background(), []string{home})

	require.NoError(t, err)
	assert.Equal(t, 1, written)

	data, err := os.ReadFile(filepath.Join(out, FileName(home)))
	require.NoError(t, err)
	assert.Equal(t, "menu\nGAMA is a platform. It runs models.", string(data))
}

func TestScraper_Scrape_WholePageReadability(t *testing.T) {
	srv := newDocsServer(t)
	out := t.TempDir()
	s := New(srv.Client(), Config{OutputDir: out, Readability: true})

	home := srv.URL + "/wiki/Home"
	written, err := s.Scrape(context.Background(), []string{home})

	require.NoError(t, err)
	assert.Equal(t, 1, written)

	data, err := os.ReadFile(filepath.Join(out, FileName(home)))
	require.NoError(t, err)
	assert.Equal(t, "GAMA is a platform. It runs models.", string(data))
}

func TestScraper_Scrape_HTTPError(t *testing.T) {
	srv := newDocsServer(t)
	s := New(srv.Client(), Config{OutputDir: t.TempDir(), ContentSelector: "div.markdown"})

	written, err := s.Scrape(context.Background(), []string{srv.URL + "/wiki/Home", srv.URL + "/wiki/Broken"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, 1, written)
}
