package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alignlab/styletrain/internal/corpus"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the conversation corpus",
	Long:  "Walk the configured corpus directory and summarize what training would see",
	RunE:  runCorpusStats,
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.Flags().StringVar(&dataDirFlag, "data-dir", "", "conversation corpus directory (overrides config)")
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	dataDir := cfg.Corpus.DataDir
	if dataDirFlag != "" {
		dataDir = dataDirFlag
	}

	loader := corpus.NewLoader(dataDir, cfg.Corpus.Exclude, cfg.Corpus.MaxFiles)
	stats, err := loader.CollectStats(corpus.NewProcessor())
	if err != nil {
		return fmt.Errorf("collecting corpus stats: %w", err)
	}

	fmt.Println(headerStyle.Render("corpus: " + dataDir))
	fmt.Printf("files:             %d\n", stats.Files)
	fmt.Printf("training samples:  %d\n", stats.Samples)
	fmt.Printf("with tool calls:   %d\n", stats.WithToolCalls)
	fmt.Printf("with code:         %d\n", stats.WithCode)

	if len(stats.ToolCounts) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tCALLS")
		for _, name := range stats.SortedTools() {
			fmt.Fprintf(w, "%s\t%d\n", name, stats.ToolCounts[name])
		}
		w.Flush()
	}
	return nil
}
