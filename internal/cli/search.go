package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandline/oracle/internal/service"
)

var (
	searchMethod string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search panels and SBS entries without answer generation",
	Long: `Search the corpus and print the matching panels and SBS entries ranked
by relevance, without generating an answer.

Semantic search embeds the query and ranks by vector similarity. Fulltext
search uses BM25 over dialogue and SBS text and needs no embedding
provider.

Examples:
  oracle search "gear second"
  oracle search "thousand sunny" --method fulltext
  oracle search "devil fruit" --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchMethod, "method", "m", service.MethodSemantic, "search method: semantic or fulltext")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max panels (0 = configured default)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	// Fulltext needs no embedding provider, but the search service embeds
	// lazily per method, so a plain retrieval init suffices either way.
	_, searchSvc, err := getServices(ctx, false)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	result, err := searchSvc.Search(ctx, query, searchMethod, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(result.Panels) == 0 && len(result.SBSEntries) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if len(result.Panels) > 0 {
		fmt.Println(defaultTheme.headerStyle().Render(fmt.Sprintf("Panels (%d)", len(result.Panels))))
		for i, p := range result.Panels {
			line := fmt.Sprintf("%d. Chapter %d", i+1, p.ChapterNumber)
			if p.ChapterTitle != nil && *p.ChapterTitle != "" {
				line += fmt.Sprintf(" %q", *p.ChapterTitle)
			}
			line += fmt.Sprintf(", Page %d, Panel %d", p.PageNumber, p.PanelNumber)
			if p.Similarity != nil {
				line += fmt.Sprintf("  (%.1f%%)", *p.Similarity*100)
			}
			fmt.Println(line)
			if p.Dialogue != nil && *p.Dialogue != "" {
				fmt.Printf("   %q\n", *p.Dialogue)
			}
			if verbose && len(p.Characters) > 0 {
				fmt.Printf("   Characters: %v\n", p.Characters)
			}
		}
		fmt.Println()
	}

	if len(result.SBSEntries) > 0 {
		fmt.Println(defaultTheme.headerStyle().Render(fmt.Sprintf("SBS Entries (%d)", len(result.SBSEntries))))
		for i, e := range result.SBSEntries {
			line := fmt.Sprintf("%d. Volume %d", i+1, e.Volume)
			if e.Similarity != nil {
				line += fmt.Sprintf("  (%.1f%%)", *e.Similarity*100)
			}
			fmt.Println(line)
			fmt.Printf("   Q: %s\n", e.Question)
			if verbose {
				fmt.Printf("   A: %s\n", e.Answer)
			}
		}
	}

	return nil
}
