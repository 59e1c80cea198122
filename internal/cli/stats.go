package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandline/oracle/internal/client"
	"github.com/grandline/oracle/internal/metrics"
)

var statsServerURL string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show runtime statistics from a running oracle server",
	Long: `Fetch and print the in-memory runtime statistics of a running
oracle-server instance: operation counts, timings, and token usage.
Statistics reset when the server restarts.

Examples:
  oracle stats
  oracle stats --server http://oracle.internal:8480`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsServerURL, "server", "", "server base URL (default $ORACLE_SERVER_URL or localhost:8480)")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	c := client.New(statsServerURL)

	snap, err := c.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	fmt.Println(defaultTheme.headerStyle().Render("Server statistics"))
	fmt.Printf("Uptime: %.0fs\n\n", snap.UptimeSeconds)

	printOp("Embedding", snap.Embedding)
	printOp("Generate", snap.Generate)
	printOp("Stream", snap.Stream)
	printOp("Panel search", snap.PanelSearch)
	printOp("SBS search", snap.SBSSearch)
	printOp("Fulltext", snap.Fulltext)
	printOp("Rate limited", snap.RateLimited)

	return nil
}

func printOp(name string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Printf("%s: %d calls, avg %.1fms (min %dms, max %dms)\n",
		name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.TotalInputTokens != nil && op.TotalOutputTokens != nil {
		fmt.Printf("  tokens: %d in / %d out\n", *op.TotalInputTokens, *op.TotalOutputTokens)
	}
}
