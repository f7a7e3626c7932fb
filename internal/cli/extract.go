package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/testament/internal/extract"
	"github.com/ppiankov/testament/internal/model"
)

var (
	extractTemplate string
	extractFacts    string
	extractDeltas   bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract will facts from free text",
	Long: `Extract reads text one utterance per line, applies the fact extractor
to each line in order and prints the accumulated facts as YAML.

With --deltas it prints one JSON delta per line instead, showing what each
utterance added. With --verbose the rules that fired are listed on stderr.

Example:
  testament extract notes.txt
  echo "My name is Jane Smith. I am married to John." | testament extract
  testament extract notes.txt --facts known.yaml | testament render -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractTemplate, "template", "", "will template whose rules apply (traditional, family, business, digital)")
	extractCmd.Flags().StringVar(&extractFacts, "facts", "", "facts file to extend")
	extractCmd.Flags().BoolVar(&extractDeltas, "deltas", false, "print one JSON delta per utterance")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	template := cfg.Template
	if extractTemplate != "" {
		template = extractTemplate
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	var facts model.Facts
	if extractFacts != "" {
		if facts, err = readFacts(extractFacts, nil); err != nil {
			return err
		}
	}

	steps, err := extractLines(in, model.ParseTemplateKind(template), facts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractDeltas {
		enc := json.NewEncoder(out)
		for _, s := range steps {
			if err := enc.Encode(s.Delta); err != nil {
				return err
			}
		}
		return nil
	}

	if cfg.Output.Verbose {
		for _, s := range steps {
			if len(s.Rules) > 0 {
				fmt.Fprintf(os.Stderr, "  %-40.40q %s\n", s.Text, strings.Join(s.Rules, ", "))
			}
		}
	}

	final := facts
	if len(steps) > 0 {
		final = steps[len(steps)-1].Facts
	}
	data, err := yaml.Marshal(final)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// extractStep is the outcome of one utterance
type extractStep struct {
	Text  string
	Delta model.Delta
	Rules []string
	Facts model.Facts // Accumulated facts after this utterance
}

// extractLines runs the extractor over each non-blank line, merging as it goes
func extractLines(r io.Reader, kind model.TemplateKind, facts model.Facts) ([]extractStep, error) {
	ex := extract.NewExtractor()

	var steps []extractStep
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		delta, findings := ex.ExtractWithFindings(line, kind, facts)
		rules := make([]string, 0, len(findings))
		for _, f := range findings {
			rules = append(rules, f.Heuristic)
		}

		var changed bool
		var section string
		facts, changed, section = model.Merge(facts, delta)
		if changed {
			facts.LastUpdatedField = section
		}
		steps = append(steps, extractStep{Text: line, Delta: delta, Rules: rules, Facts: facts})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return steps, nil
}
