package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/spf13/cobra"
)

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	var (
		limit      int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored chunks",
		Long:  "Embeds the query with the configured provider and returns the closest stored chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateEmbedding(); err != nil {
				return err
			}
			if err := cfg.ValidateSink(); err != nil {
				return err
			}

			embedder, closeEmbedder, err := newEmbedder(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			sink, closeSink, err := openSink(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer closeSink()

			vec, err := embedder.GenerateEmbedding(ctx, args[0])
			if err != nil {
				return domain.ExternalError(domain.StageEmbed, "failed to embed query", err)
			}

			hits, err := sink.SearchByEmbedding(ctx, domain.FitDimension(vec, cfg.EmbeddingDimension), limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			return printHits(cmd, hits, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	return cmd
}

func printHits(cmd *cobra.Command, hits []domain.SearchHit, outputJSON bool) error {
	out := cmd.OutOrStdout()

	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(out, "%d. %s (%.2f)\n", i+1, hit.Identifier, hit.Score)
		text := strings.Join(strings.Fields(hit.Text), " ")
		if len(text) > 100 {
			text = text[:97] + "..."
		}
		fmt.Fprintf(out, "   %s\n", text)
		if i < len(hits)-1 {
			fmt.Fprintln(out, strings.Repeat("-", 40))
		}
	}

	return nil
}
