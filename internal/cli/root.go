package cli

import "github.com/spf13/cobra"

// NewRootCmd assembles the docingest command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docingest",
		Short: "Documentation ingestion pipeline",
		Long: `docingest turns a folder of documentation pages into embedded, token-bounded
chunks stored for similarity search.

Configuration is read from DOCINGEST_* environment variables and an optional
.env file. See DOCINGEST_DATABASE_URL, DOCINGEST_OPENAI_API_KEY and
DOCINGEST_FOLDER to get started.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(ScrapeCmd())
	rootCmd.AddCommand(ChunkCmd())
	rootCmd.AddCommand(SearchCmd())
	rootCmd.AddCommand(MigrateCmd())

	return rootCmd
}
