package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/invoice-ocr/internal/invoice"
	"github.com/zombor/invoice-ocr/internal/ocr"
	"github.com/zombor/invoice-ocr/internal/submission"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Values from .env are picked up through the INVOICE_OCR_ env prefix
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code. Deferred cleanup
// happens here so main can exit without skipping it.
func run(args []string, stdout, stderr io.Writer) int {
	// Check for version flag before parsing other flags
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Fprintln(stdout, version)
			return 0
		}
	}

	fs := ff.NewFlagSet("invoice-ocr")
	var (
		endpoint    = fs.StringLong("endpoint", ocr.DefaultEndpoint, "OCR service endpoint")
		timeout     = fs.DurationLong("timeout", 120*time.Second, "OCR request timeout")
		exportFile  = fs.BoolLong("export", "Export the recognized invoice")
		format      = fs.StringLong("format", "csv", "Export format: 'csv' or 'xlsx'")
		outDir      = fs.StringLong("out", ".", "Export directory")
		debug       = fs.BoolLong("debug", "Enable debug logging")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("INVOICE_OCR"),
	); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if *format != "csv" && *format != "xlsx" {
		slog.Error("Invalid export format", "format", *format, "valid", "csv or xlsx")
		return 1
	}

	rest := fs.GetArgs()
	if len(rest) != 1 {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(stderr, "error: %s\n", submission.MessageNoFileSelected)
		return 1
	}

	file, err := loadFile(rest[0])
	if err != nil {
		slog.Error("Failed to load file", "path", rest[0], "error", err)
		return 1
	}

	// Initialize client and controller
	slog.Info("Initializing OCR client...", "endpoint", *endpoint, "timeout", *timeout)
	client := ocr.NewHTTPClient(*endpoint, *timeout)
	controller := submission.NewController(client, func(s submission.State) {
		if _, ok := s.(submission.Submitting); ok {
			fmt.Fprintln(stderr, "识别中...")
		}
	})
	defer controller.Close()

	controller.SelectFile(file)
	if err := controller.Submit(); err != nil {
		fmt.Fprintln(stderr, submission.Message(err))
		return 1
	}

	// Wait for the result or an interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := controller.Wait(ctx); err != nil {
		slog.Info("Interrupted, discarding pending result")
		return 130
	}

	switch s := controller.State().(type) {
	case submission.Succeeded:
		render(stdout, s.Result)
		if *exportFile {
			if err := export(s.Result, *format, *outDir); err != nil {
				slog.Error("Failed to export invoice", "error", err)
				return 1
			}
		}
	case submission.Failed:
		fmt.Fprintf(stderr, "❌ %s\n", s.Message)
		return 1
	}
	return 0
}

// loadFile reads the upload and converts HEIC photos for the backend
func loadFile(path string) (ocr.File, error) {
	file, err := ocr.ReadFile(path)
	if err != nil {
		return ocr.File{}, err
	}
	if !ocr.Accepted(file.Name, file.ContentType) {
		slog.Warn("File type is not in the accepted list, sending anyway",
			"filename", file.Name,
			"content_type", file.ContentType,
		)
	}

	normalized, converted, err := ocr.Normalize(file)
	if err != nil {
		return ocr.File{}, fmt.Errorf("normalizing %s: %w", file.Name, err)
	}
	if converted {
		slog.Info("Converted image to PNG", "from", file.Name, "to", normalized.Name)
	}
	return normalized, nil
}

// export writes the result through a LocalSink in the requested format
func export(result *invoice.InvoiceResult, format, outDir string) error {
	sink, err := invoice.NewLocalSink(outDir)
	if err != nil {
		return err
	}

	var (
		filename string
		content  []byte
	)
	switch format {
	case "xlsx":
		filename, content, err = invoice.ExportXLSX(result)
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
	default:
		filename, content = invoice.Export(result)
	}

	path, err := sink.Save(filename, content)
	if err != nil {
		return fmt.Errorf("saving export: %w", err)
	}
	slog.Info("Invoice exported", "path", path, "format", format)
	return nil
}
