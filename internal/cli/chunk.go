package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/docingest/internal/config"
	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/cloo-solutions/docingest/internal/service"
	"github.com/cloo-solutions/docingest/internal/source"
	"github.com/cloo-solutions/docingest/internal/tokenizer"
	"github.com/spf13/cobra"
)

// ChunkCmd returns the chunk command
func ChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Split one file into chunks",
		Long:  "Tokenizes and splits a single file and prints the chunks as JSON. Nothing is embedded or stored.",
		Args:  cobra.ExactArgs(1),
		RunE:  runChunk,
	}

	addChunkFlags(cmd)

	return cmd
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{MaxTokens: service.DefaultChunkConfig().MaxTokens, OverflowPolicy: string(service.OverflowDuplicate)}
	applyFlags(cmd, cfg)

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.IOError(domain.StageLoad, fmt.Sprintf("failed to read %s", path), err)
	}

	text := string(data)
	if ext := filepath.Ext(path); ext == ".html" || ext == ".htm" {
		if text, err = source.HTMLToText(data, false); err != nil {
			return domain.IOError(domain.StageLoad, fmt.Sprintf("failed to convert %s", path), err)
		}
	}

	tok, err := tokenizer.New()
	if err != nil {
		return err
	}

	chunker := service.NewChunker(tok, chunkConfig(cfg))
	chunks := chunker.Split(domain.TokenizedDocument{
		Document:   *domain.NewDocument(filepath.Base(path), text),
		TokenCount: tok.Count(text),
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(chunks)
}
