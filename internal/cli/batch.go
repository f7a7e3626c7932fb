package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/render"
	"github.com/ppiankov/testament/internal/worker"
)

var (
	concurrency   int
	outputDir     string
	batchFormats  []string
	batchTemplate string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|file>...",
	Short: "Render many facts files in parallel",
	Long: `Batch renders every facts file (.yaml, .yml, .json) it is given,
or finds in the given directories, in parallel:
- Each file is rendered with the chosen template
- Every requested format is written to the output directory
- Failures are reported per file and do not stop the batch

Example:
  testament batch ./clients
  testament batch a.yaml b.yaml --format markdown --format docx
  testament batch ./clients --concurrency 8 --output-dir ./wills`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./testament-wills", "output directory for documents")
	batchCmd.Flags().StringSliceVar(&batchFormats, "format", []string{"markdown"}, "output formats (text, markdown, html, docx)")
	batchCmd.Flags().StringVar(&batchTemplate, "template", "", "will template (traditional, family, business, digital)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	template := cfg.Template
	if batchTemplate != "" {
		template = batchTemplate
	}

	formats := make([]render.Format, 0, len(batchFormats))
	for _, f := range batchFormats {
		format, err := render.ParseFormat(f)
		if err != nil {
			return err
		}
		formats = append(formats, format)
	}

	files, err := collectFactsFiles(args)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Testament Batch Rendering\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:        %d\n", len(files))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Template:     %s\n", model.ParseTemplateKind(template))
	fmt.Fprintf(os.Stderr, "  Formats:      %s\n", strings.Join(batchFormats, ", "))
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	results := renderBatch(files, model.ParseTemplateKind(template), formats, outputDir, concurrency)

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}
		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s → %s (%d articles)\n", result.Path, strings.Join(result.Outputs, ", "), result.Articles)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d files failed", failureCount, len(results))
	}
	return nil
}

// RenderJob renders one facts file into every requested format
type RenderJob struct {
	Path     string
	Template model.TemplateKind
	Formats  []render.Format
	OutDir   string
}

// Execute executes the render job
func (j *RenderJob) Execute(ctx context.Context) worker.Result {
	result := &RenderResult{Path: j.Path}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	facts, err := readFacts(j.Path, nil)
	if err != nil {
		result.Error = err
		return result
	}
	doc := render.Build(j.Template, facts)
	result.Articles = len(doc.Articles)

	base := sanitizeFilename(strings.TrimSuffix(filepath.Base(j.Path), filepath.Ext(j.Path)))
	for _, format := range j.Formats {
		out := filepath.Join(j.OutDir, base+extension(format))
		if err := writeDocument(out, doc, format); err != nil {
			result.Error = err
			return result
		}
		result.Outputs = append(result.Outputs, out)
	}
	return result
}

// RenderResult represents the result of a render job
type RenderResult struct {
	Path     string
	Outputs  []string
	Articles int
	Error    error
}

// GetError returns the error from the render result
func (r *RenderResult) GetError() error {
	return r.Error
}

// renderBatch runs one job per file on a worker pool and returns results sorted by path
func renderBatch(files []string, kind model.TemplateKind, formats []render.Format, outDir string, workers int) []*RenderResult {
	if len(files) == 0 {
		return []*RenderResult{}
	}

	pool := worker.NewPool(workers)
	pool.Start()

	go func() {
		for _, f := range files {
			if !pool.Submit(&RenderJob{Path: f, Template: kind, Formats: formats, OutDir: outDir}) {
				break
			}
		}
		pool.Close()
	}()

	results := make([]*RenderResult, 0, len(files))
	for r := range pool.Results() {
		results = append(results, r.(*RenderResult))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

// collectFactsFiles expands directories into their facts files, keeping explicit files as given
func collectFactsFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".yaml", ".yml", ".json":
				add(filepath.Join(arg, e.Name()))
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no facts files found")
	}
	return files, nil
}

func extension(f render.Format) string {
	switch f {
	case render.FormatMarkdown:
		return ".md"
	case render.FormatHTML:
		return ".html"
	case render.FormatDOCX:
		return ".docx"
	default:
		return ".txt"
	}
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		s = "will"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
