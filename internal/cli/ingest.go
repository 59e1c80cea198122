package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grandline/oracle/internal/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Load panels and SBS entries from a YAML file into the corpus",
	Long: `Ingest corpus records from a YAML file. Each record is embedded and
stored with its vector, so searches see it immediately.

The file holds two optional lists:

  panels:
    - chapter_number: 388
      chapter_title: "Gear Second"
      page_number: 12
      panel_number: 3
      dialogue: "Gear Second!"
      characters: [Monkey D. Luffy]
  sbs:
    - volume: 44
      question: "How does Gear Second work?"
      answer: "Luffy pumps blood faster through his rubber body."

Examples:
  oracle ingest corpus/water7.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

type panelInput struct {
	ChapterNumber int      `yaml:"chapter_number"`
	ChapterTitle  *string  `yaml:"chapter_title"`
	PageNumber    int      `yaml:"page_number"`
	PanelNumber   int      `yaml:"panel_number"`
	Dialogue      *string  `yaml:"dialogue"`
	Characters    []string `yaml:"characters"`
}

type sbsInput struct {
	Volume   int    `yaml:"volume"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type corpusFile struct {
	Panels []panelInput `yaml:"panels"`
	SBS    []sbsInput   `yaml:"sbs"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	total := len(file.Panels) + len(file.SBS)
	if total == 0 {
		fmt.Println("Nothing to ingest.")
		return nil
	}

	// Only the embedder is needed; no answer generation happens here.
	if _, _, err := getServices(ctx, false); err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	process := func(index int) error {
		if index < len(file.Panels) {
			return ingestPanel(ctx, file.Panels[index])
		}
		return ingestSBS(ctx, file.SBS[index-len(file.Panels)])
	}

	errs, err := runIngestProgress(total, process)
	if err != nil {
		return err
	}

	fmt.Println(defaultTheme.headerStyle().Render(
		fmt.Sprintf("✓ Ingested %d/%d records", total-len(errs), total)))
	if len(errs) > 0 {
		fmt.Println(defaultTheme.errorStyle().Render(fmt.Sprintf("Failures (%d):", len(errs))))
		for _, e := range errs {
			fmt.Printf("  • %s\n", e)
		}
	}

	return nil
}

func ingestPanel(ctx context.Context, in panelInput) error {
	embedding, err := embedder.Embed(ctx, panelEmbeddingText(in))
	if err != nil {
		return fmt.Errorf("embed panel: %w", err)
	}

	return dbClient.CreatePanel(ctx, models.Panel{
		ChapterNumber: in.ChapterNumber,
		ChapterTitle:  in.ChapterTitle,
		PageNumber:    in.PageNumber,
		PanelNumber:   in.PanelNumber,
		Dialogue:      in.Dialogue,
		Characters:    in.Characters,
		Embedding:     embedding,
	})
}

func ingestSBS(ctx context.Context, in sbsInput) error {
	text := fmt.Sprintf("Q: %s\nA: %s", in.Question, in.Answer)
	embedding, err := embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed sbs entry: %w", err)
	}

	return dbClient.CreateSBS(ctx, models.SBSEntry{
		Volume:    in.Volume,
		Question:  in.Question,
		Answer:    in.Answer,
		Embedding: embedding,
	})
}

// panelEmbeddingText flattens a panel into the text that gets embedded:
// dialogue plus character names, with chapter context so wordless panels
// still land near their arc.
func panelEmbeddingText(in panelInput) string {
	var parts []string
	if in.ChapterTitle != nil && *in.ChapterTitle != "" {
		parts = append(parts, *in.ChapterTitle)
	}
	if len(in.Characters) > 0 {
		parts = append(parts, strings.Join(in.Characters, ", "))
	}
	if in.Dialogue != nil && *in.Dialogue != "" {
		parts = append(parts, *in.Dialogue)
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Chapter %d panel", in.ChapterNumber))
	}
	return strings.Join(parts, "\n")
}
