package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/cloo-solutions/docingest/internal/scraper"
	"github.com/spf13/cobra"
)

// ScrapeCmd returns the scrape command
func ScrapeCmd() *cobra.Command {
	var (
		urls        []string
		index       string
		links       string
		selector    string
		readability bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download documentation pages into the data folder",
		Long: `Fetches pages and writes their text to <data dir>/<folder>, one .txt file
per page. Pages come from --url, or from the links matched by --links on the
--index page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)

			s := scraper.New(nil, scraper.Config{
				OutputDir:       filepath.Join(cfg.DataDir, cfg.Folder),
				ContentSelector: selector,
				Readability:     readability,
			})

			targets := append([]string{}, urls...)
			if index != "" {
				found, err := s.Discover(ctx, index, links)
				if err != nil {
					return domain.ExternalError("scrape", "failed to discover pages", err)
				}
				targets = append(targets, found...)
			}
			if len(targets) == 0 {
				return domain.ConfigError("nothing to scrape: pass --url or --index", nil)
			}

			written, err := s.Scrape(ctx, targets)
			if err != nil {
				return domain.ExternalError("scrape", fmt.Sprintf("stopped after %d pages", written), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d pages to %s\n", written, len(targets), filepath.Join(cfg.DataDir, cfg.Folder))
			return nil
		},
	}

	cmd.Flags().String("folder", "", "Data folder to write into (overrides DOCINGEST_FOLDER)")
	cmd.Flags().StringSliceVar(&urls, "url", nil, "Page URL to fetch (repeatable)")
	cmd.Flags().StringVar(&index, "index", "", "Index page whose links are scraped")
	cmd.Flags().StringVar(&links, "links", "nav.menu a", "CSS selector of the links on the index page")
	cmd.Flags().StringVar(&selector, "selector", "div.markdown", "CSS selector of the page content; empty converts the whole page")
	cmd.Flags().BoolVar(&readability, "readability", true, "Drop boilerplate when converting whole pages")

	return cmd
}
