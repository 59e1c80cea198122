// Package cli provides the command-line interface for oracle.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/db"
	"github.com/grandline/oracle/internal/llm"
	"github.com/grandline/oracle/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "One Piece manga knowledge base with grounded answers",
	Long: `Oracle answers questions about the One Piece manga from an indexed
corpus of panels and SBS (author Q&A) entries.

Questions are answered by retrieving the most similar panels and SBS
entries, then generating a grounded answer with explicit chapter and page
citations. Plain search without generation is also available.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for commands that never touch the store
		switch cmd.Name() {
		case "version", "help", "stats":
			return nil
		}

		cfg = config.Load()

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getServices creates the pipeline services with lazy LLM initialization.
// Commands that only need retrieval pass requireModel=false and skip the
// generation backend entirely.
func getServices(ctx context.Context, requireModel bool) (*service.AskService, *service.SearchService, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	if requireModel && model == nil {
		var err error
		model, err = llm.NewModel(ctx, cfg, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init model: %w", err)
		}
	}

	return service.NewAskService(dbClient, embedder, model, cfg, nil),
		service.NewSearchService(dbClient, embedder, cfg, nil), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statsCmd)
}
