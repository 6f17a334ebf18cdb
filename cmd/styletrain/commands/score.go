package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alignlab/styletrain/internal/highlight"
	"github.com/alignlab/styletrain/internal/style"
	"github.com/alignlab/styletrain/internal/tools"
)

var scoreShowText bool

var scoreBarStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFA500"))

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score a response against the reference style",
	Long: `Evaluate a text file (or stdin when no file is given) against the
reference style and print the weighted breakdown: structure, language,
code style, and completeness.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().BoolVar(&scoreShowText, "show-text", false, "echo the scored text with highlighted code blocks")
}

func runScore(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error

	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	text := string(data)
	breakdown := style.NewEvaluator().Breakdown(text)

	fmt.Println(headerStyle.Render("style score"))
	printScore("structure", breakdown.Structure)
	printScore("language", breakdown.Language)
	printScore("code style", breakdown.CodeStyle)
	printScore("completeness", breakdown.Completeness)
	fmt.Println()
	fmt.Printf("composite:    %s\n", doneStyle.Render(fmt.Sprintf("%.1f%%", breakdown.Composite()*100)))

	if tools.HasInvocation(text) {
		calls := tools.ParseInvocations(text)
		fmt.Printf("tool calls:   %d\n", len(calls))
		for _, c := range calls {
			fmt.Printf("  - %s\n", c.Name)
		}
	}

	if scoreShowText {
		fmt.Println()
		fmt.Println(highlight.Markdown(text))
	}
	return nil
}

func printScore(name string, v float64) {
	fmt.Printf("%-13s %5.1f%%  %s\n", name+":", v*100, scoreBarStyle.Render(bar(v)))
}

// bar renders a 20-cell progress bar
func bar(v float64) string {
	filled := int(v * 20)
	out := make([]rune, 20)
	for i := range out {
		if i < filled {
			out[i] = '█'
		} else {
			out[i] = '░'
		}
	}
	return string(out)
}
