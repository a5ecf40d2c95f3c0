package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-mapper/internal/config"
	"github.com/a3tai/mcp-pdf-mapper/internal/pdf"
	pdferrors "github.com/a3tai/mcp-pdf-mapper/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/inject"
)

// FillResult is the outcome of one run, printed as text or JSON
type FillResult struct {
	Source     string                `json:"source"`
	Output     string                `json:"output,omitempty"`
	Success    bool                  `json:"success"`
	PageCount  int                   `json:"page_count"`
	Rendered   []string              `json:"rendered,omitempty"`
	Skipped    []inject.SkippedField `json:"skipped,omitempty"`
	Error      string                `json:"error,omitempty"`
	ErrorType  string                `json:"error_type,omitempty"`
	RenderTime string                `json:"render_time,omitempty"`
}

type options struct {
	templatePath string
	dataPath     string
	outputPath   string
	format       string
	pagesOnly    bool
	help         bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.DefaultConfig()
	fs := pflag.NewFlagSet("pdf_fill", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVarP(&opts.templatePath, "template", "t", "", "Template JSON file")
	fs.StringVarP(&opts.dataPath, "data", "d", "", "Data JSON file, or - for stdin")
	fs.StringVarP(&opts.outputPath, "out", "o", "", "Output PDF (default: <template>_filled.pdf next to the source)")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.BoolVar(&opts.pagesOnly, "pages", false, "Only validate the source and print its page count")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")
	config.DefineRenderFlags(fs, cfg)
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printUsage(stderr, fs)
		return 2
	}
	if opts.help {
		printUsage(stdout, fs)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one source PDF is required\n\n")
		printUsage(stderr, fs)
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 2
	}

	if err := loadRenderConfig(fs, cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	renderOpts, err := cfg.RenderOptions()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	source := fs.Arg(0)
	var result *FillResult
	if opts.pagesOnly {
		result = countPages(source)
	} else {
		result = fill(source, opts, renderOpts, stdin)
	}

	if err := outputResult(stdout, opts.format, result); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}
	if !result.Success {
		return 1
	}
	return 0
}

// loadRenderConfig reads the render flags, with PDF_MAPPER_* environment
// variables as fallback for flags left unset.
func loadRenderConfig(fs *pflag.FlagSet, cfg *config.Config) error {
	v := viper.New()
	v.SetEnvPrefix("PDF_MAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg.FontName = v.GetString("font")
	cfg.FontSize = v.GetFloat64("font-size")
	cfg.TextColor = v.GetString("text-color")
	cfg.StrictGeometry = v.GetBool("strict-geometry")
	return nil
}

func countPages(source string) *FillResult {
	result := &FillResult{Source: source}

	src, err := os.ReadFile(source)
	if err != nil {
		return failed(result, err)
	}
	count, err := inject.PageCount(src)
	if err != nil {
		return failed(result, err)
	}

	result.Success = true
	result.PageCount = count
	return result
}

func fill(source string, opts options, renderOpts inject.Options, stdin io.Reader) *FillResult {
	start := time.Now()
	result := &FillResult{Source: source}

	if opts.templatePath == "" {
		return failed(result, errors.New("--template is required"))
	}

	src, err := os.ReadFile(source)
	if err != nil {
		return failed(result, err)
	}
	rawTemplate, err := os.ReadFile(opts.templatePath)
	if err != nil {
		return failed(result, err)
	}
	tpl, err := pdf.ParseTemplate(rawTemplate)
	if err != nil {
		return failed(result, err)
	}

	var rawData []byte
	switch opts.dataPath {
	case "":
	case "-":
		rawData, err = io.ReadAll(stdin)
	default:
		rawData, err = os.ReadFile(opts.dataPath)
	}
	if err != nil {
		return failed(result, err)
	}
	data, err := pdf.ParseData(rawData)
	if err != nil {
		return failed(result, err)
	}

	injector, err := inject.NewInjector(renderOpts)
	if err != nil {
		return failed(result, err)
	}
	report, err := injector.ProcessWithReport(src, tpl, data)
	if err != nil {
		return failed(result, err)
	}

	output := opts.outputPath
	if output == "" {
		sourceName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		output = filepath.Join(filepath.Dir(source), pdf.OutputFilename(tpl.Name, sourceName))
	}
	if err := os.WriteFile(output, report.Output, 0o600); err != nil {
		return failed(result, err)
	}

	result.Success = true
	result.Output = output
	result.PageCount = report.PageCount
	result.Rendered = report.Rendered
	result.Skipped = report.Skipped
	result.RenderTime = time.Since(start).Round(time.Millisecond).String()
	return result
}

func failed(result *FillResult, err error) *FillResult {
	result.Success = false
	result.Error = err.Error()
	if t := pdferrors.TypeOf(err); t != pdferrors.ErrorTypeUnknown {
		result.ErrorType = t.String()
	}
	return result
}

func outputResult(w io.Writer, format string, result *FillResult) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	return outputText(w, result)
}

func outputText(w io.Writer, result *FillResult) error {
	if !result.Success {
		_, err := fmt.Fprintf(w, "FAILED %s: %s\n", result.Source, result.Error)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s (%d pages)\n", result.Source, result.PageCount)
	if result.Output == "" {
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Output: %s\n", result.Output)
	fmt.Fprintf(&b, "Rendered: %d field(s)\n", len(result.Rendered))
	for _, key := range result.Rendered {
		fmt.Fprintf(&b, "  ✓ %s\n", key)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped: %d field(s)\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(&b, "  - %s (page %d): %s\n", s.Key, s.PageNumber, s.Reason)
		}
	}
	if result.RenderTime != "" {
		fmt.Fprintf(&b, "Time: %s\n", result.RenderTime)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "PDF Fill - Draw template field values onto a PDF")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_fill [OPTIONS] <source.pdf>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_fill -t intake.template.json -d patient.json intake.pdf")
	fmt.Fprintln(w, "  cat row.json | pdf_fill -t w9.json -d - --font=tiro -o out.pdf w9.pdf")
	fmt.Fprintln(w, "  pdf_fill --pages --format json contract.pdf")
}
