package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/docingest/internal/config"
	"github.com/cloo-solutions/docingest/internal/pipeline"
	"github.com/cloo-solutions/docingest/internal/service"
	"github.com/cloo-solutions/docingest/internal/source"
	"github.com/cloo-solutions/docingest/internal/tokenizer"
	"github.com/spf13/cobra"
)

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline",
		Long: `Loads every document of the data folder, splits it into token-bounded
chunks, embeds each chunk and stores the rows. Stage results are cached, so a
rerun resumes after the last completed stage.`,
		Args: cobra.NoArgs,
		RunE: runPipeline,
	}

	addChunkFlags(cmd)
	cmd.Flags().String("folder", "", "Data folder to ingest (overrides DOCINGEST_FOLDER)")
	cmd.Flags().Bool("no-migrate", false, "Skip database migrations before the run")

	return cmd
}

// addChunkFlags registers the flags that override chunking settings.
func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-tokens", 0, "Token budget per chunk (overrides DOCINGEST_MAX_TOKENS)")
	cmd.Flags().String("overflow", "", "Overflow policy: duplicate or defer (overrides DOCINGEST_OVERFLOW_POLICY)")
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Lookup("folder") != nil {
		if folder, _ := cmd.Flags().GetString("folder"); folder != "" {
			cfg.Folder = folder
		}
	}
	if maxTokens, _ := cmd.Flags().GetInt("max-tokens"); maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
	if overflow, _ := cmd.Flags().GetString("overflow"); overflow != "" {
		cfg.OverflowPolicy = overflow
	}
}

func chunkConfig(cfg *config.Config) service.ChunkConfig {
	return service.ChunkConfig{
		MaxTokens: cfg.MaxTokens,
		Overflow:  service.OverflowPolicy(cfg.OverflowPolicy),
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdownTelemetry := setupTelemetry(cfg)
	defer shutdownTelemetry()

	tok, err := tokenizer.New()
	if err != nil {
		return err
	}

	embedder, closeEmbedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	sink, closeSink, err := openSink(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer closeSink()

	store, err := newCacheStore(ctx, cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg.Folder, pipeline.Deps{
		Loader:   source.NewLoader(cfg.DataDir, cfg.Folder),
		Counter:  tok,
		Chunker:  service.NewChunker(tok, chunkConfig(cfg)),
		Embedder: newEmbeddingService(embedder, cfg),
		Persister: service.NewPersistService(sink, tok, service.PersistConfig{
			MinTextLength:      cfg.MinTextLength,
			EmbeddingDimension: cfg.EmbeddingDimension,
		}),
		Cache: store,
	})

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d documents, %d chunks, saved %d, skipped %d\n",
		result.RunID, result.Documents, result.Chunks, result.Summary.Saved, result.Summary.Skipped)
	return nil
}
