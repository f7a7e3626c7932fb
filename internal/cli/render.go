package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/render"
)

var (
	renderTemplate string
	renderFormat   string
	renderOutput   string
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <facts.yaml|->",
	Short: "Render a will from a facts file",
	Long: `Render builds the will document from a YAML (or JSON) facts file.
Use "-" to read facts from stdin, for example from "testament extract".

The output format follows --format, or the extension of --output.

Example:
  testament render facts.yaml
  testament render facts.yaml --template family --output will.docx
  testament extract notes.txt | testament render - --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "will template (traditional, family, business, digital)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "output format (text, markdown, html, docx)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default: stdout)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	facts, err := readFacts(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	template := cfg.Template
	if renderTemplate != "" {
		template = renderTemplate
	}

	format, err := outputFormat(renderFormat, renderOutput, cfg.Output.Format)
	if err != nil {
		return err
	}

	doc := render.Build(model.ParseTemplateKind(template), facts)

	if renderOutput == "" {
		if format == render.FormatDOCX {
			return fmt.Errorf("docx output needs --output")
		}
		return render.Export(cmd.OutOrStdout(), doc, format)
	}
	if err := writeDocument(renderOutput, doc, format); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ %s written (%d articles)\n", renderOutput, len(doc.Articles))
	return nil
}

// readFacts decodes a facts file; "-" reads r
func readFacts(path string, r io.Reader) (model.Facts, error) {
	var data []byte
	var err error
	if path == "-" {
		if r == nil {
			return model.Facts{}, fmt.Errorf("read facts: stdin is not available here")
		}
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Facts{}, fmt.Errorf("read facts: %w", err)
	}

	var facts model.Facts
	if err := yaml.Unmarshal(data, &facts); err != nil {
		return model.Facts{}, fmt.Errorf("parse facts %s: %w", path, err)
	}
	return facts, nil
}

// outputFormat picks the explicit format, then the output extension, then the fallback
func outputFormat(explicit, output, fallback string) (render.Format, error) {
	switch {
	case explicit != "":
		return render.ParseFormat(explicit)
	case output != "" && filepath.Ext(output) != "":
		return render.ParseFormat(filepath.Ext(output))
	default:
		return render.ParseFormat(fallback)
	}
}

// writeDocument renders into memory first so a failed export leaves no partial file
func writeDocument(path string, doc model.Document, format render.Format) error {
	var buf bytes.Buffer
	if err := render.Export(&buf, doc, format); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
