// Package scraper fetches documentation pages and stores their text in the
// data folder the pipeline reads from.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloo-solutions/docingest/internal/source"
)

// Config controls how pages are fetched and converted.
type Config struct {
	// OutputDir receives one .txt file per page.
	OutputDir string
	// ContentSelector picks the element whose text is kept. Empty means the
	// whole page body is converted.
	ContentSelector string
	// Readability drops boilerplate blocks when converting whole pages.
	Readability bool
	Timeout     time.Duration
}

// Scraper downloads pages sequentially.
type Scraper struct {
	client *http.Client
	cfg    Config
}

// New creates a Scraper. A nil client uses a default client with cfg.Timeout.
func New(client *http.Client, cfg Config) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Scraper{client: client, cfg: cfg}
}

// FileName maps a page URL to its file name in the data folder: the scheme is
// dropped, "/" and ":" become "-" and ".txt" is appended.
func FileName(pageURL string) string {
	if i := strings.Index(pageURL, "://"); i >= 0 {
		pageURL = pageURL[i+len("://"):]
	}
	return fileNameReplacer.Replace(pageURL) + ".txt"
}

var fileNameReplacer = strings.NewReplacer("/", "-", ":", "-")

// Discover returns the absolute URLs of every link matched by linkSelector on
// the index page, in document order, without duplicates.
func (s *Scraper) Discover(ctx context.Context, indexURL, linkSelector string) ([]string, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index url: %w", err)
	}

	body, err := s.fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page: %w", err)
	}

	nav := doc.Find(linkSelector)
	if nav.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q on %s", linkSelector, indexURL)
	}

	seen := make(map[string]bool)
	var urls []string
	nav.Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if !seen[abs.String()] {
			seen[abs.String()] = true
			urls = append(urls, abs.String())
		}
	})

	log.Printf("scraper: found %d links on %s", len(urls), indexURL)
	return urls, nil
}

// Scrape fetches each page and writes its text to OutputDir. Pages with no
// text are skipped. It returns the number of files written.
func (s *Scraper) Scrape(ctx context.Context, urls []string) (int, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := 0
	for _, pageURL := range urls {
		body, err := s.fetch(ctx, pageURL)
		if err != nil {
			return written, err
		}

		text, err := s.extract(body)
		if err != nil {
			return written, fmt.Errorf("failed to extract %s: %w", pageURL, err)
		}
		if text == "" {
			log.Printf("scraper: no content on %s, skipping", pageURL)
			continue
		}

		path := filepath.Join(s.cfg.OutputDir, FileName(pageURL))
		log.Printf("scraper: writing %s", path)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written++
	}

	return written, nil
}

func (s *Scraper) extract(body []byte) (string, error) {
	if s.cfg.ContentSelector == "" {
		return source.HTMLToText(body, s.cfg.Readability)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return source.SelectionText(doc.Find(s.cfg.ContentSelector).First()), nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return body, nil
}
