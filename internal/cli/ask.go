package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandline/oracle/internal/models"
	"github.com/grandline/oracle/internal/service"
)

var (
	askTier   string
	askStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and get a grounded, cited answer",
	Long: `Ask a question about the One Piece manga and get an answer generated
from the most similar panels and SBS entries, with chapter/page citations.

Examples:
  oracle ask "How does Gear Second work?"
  oracle ask "Who is Luffy's brother?" --stream
  oracle ask "What did Oda say about Zoro's scar?" --tier pro`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askTier, "tier", service.TierPro, "subscription tier to ask as")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := context.Background()

	askSvc, _, err := getServices(ctx, true)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	var answer *models.Answer
	if askStream {
		answer, err = askSvc.AskStream(ctx, question, askTier, func(token string) error {
			fmt.Print(token)
			return nil
		})
		fmt.Println()
	} else {
		answer, err = askSvc.Ask(ctx, question, askTier)
	}
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	if !askStream {
		fmt.Println(answer.Text)
	}

	printCitations(answer.Citations)
	if verbose {
		fmt.Println(defaultTheme.hintStyle().Render(fmt.Sprintf("model: %s", answer.Model)))
	}

	return nil
}

func printCitations(citations []models.Citation) {
	if len(citations) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(defaultTheme.headerStyle().Render("Sources"))
	for i, c := range citations {
		switch c.Type {
		case models.CitationPanel:
			line := fmt.Sprintf("%d. Chapter %d", i+1, c.Chapter)
			if c.Title != nil && *c.Title != "" {
				line += fmt.Sprintf(" %q", *c.Title)
			}
			line += fmt.Sprintf(", Page %d, Panel %d", c.Page, c.Panel)
			fmt.Println(line)
		case models.CitationSBS:
			fmt.Printf("%d. SBS Volume %d: %s\n", i+1, c.Volume, c.Question)
		}
	}
}
