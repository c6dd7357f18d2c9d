package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gmsas95/docscan/internal/api"
	"github.com/gmsas95/docscan/internal/app"
	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/export"
	"github.com/gmsas95/docscan/internal/extract"
	"github.com/gmsas95/docscan/internal/ocr"
)

var Version = "dev"

// Exit prints err and terminates the process when err is non-nil
func Exit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// needValue returns the argument after position i
func needValue(args []string, i int) (string, error) {
	if i+1 >= len(args) {
		return "", fmt.Errorf("%s requires a value", args[i])
	}
	return args[i+1], nil
}

func needInt(args []string, i int) (int, error) {
	v, err := needValue(args, i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", args[i], v)
	}
	return n, nil
}

func needDuration(args []string, i int) (time.Duration, error) {
	v, err := needValue(args, i)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", args[i], err)
	}
	return d, nil
}

// RunExtract extracts fields from OCR text files, or from stdin when no
// file is given. Each file is one document.
func RunExtract(args []string, in io.Reader, out io.Writer) error {
	var files []string
	index := 1
	format := ""

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "-f", "--file":
			var f string
			f, err = needValue(args, i)
			files = append(files, f)
			i++
		case "--index":
			index, err = needInt(args, i)
			i++
		case "--format":
			format, err = needValue(args, i)
			i++
		case "-h", "--help":
			PrintExtractHelp(out)
			return nil
		default:
			files = append(files, args[i])
		}
		if err != nil {
			return err
		}
	}

	if index < 1 {
		return fmt.Errorf("--index must be at least 1")
	}

	if len(files) == 0 {
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		return writeRecords(out, format, []extract.DocumentRecord{extract.Extract(string(data), index)})
	}

	texts := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		texts = append(texts, string(data))
	}

	// --index numbers the first file; the rest follow on
	records := make([]extract.DocumentRecord, len(texts))
	for i, text := range texts {
		records[i] = extract.Extract(text, index+i)
	}
	return writeRecords(out, format, records)
}

func loadImages(paths []string) ([]ocr.Image, error) {
	images := make([]ocr.Image, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", p, err)
		}
		images = append(images, ocr.Image{Name: filepath.Base(p), Data: data})
	}
	return images, nil
}

// RunScan runs OCR and extraction over image files
func RunScan(ctx context.Context, args []string, application *app.App, out io.Writer) error {
	var paths []string
	save := false
	format := ""

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "-i", "--image":
			var p string
			p, err = needValue(args, i)
			paths = append(paths, p)
			i++
		case "-c", "--concurrency":
			var n int
			n, err = needInt(args, i)
			if err == nil {
				application.Config.Batch.MaxConcurrency = n
			}
			i++
		case "--save":
			save = true
		case "--format":
			format, err = needValue(args, i)
			i++
		case "-h", "--help":
			PrintScanHelp(out)
			return nil
		default:
			paths = append(paths, args[i])
		}
		if err != nil {
			return err
		}
	}

	if len(paths) == 0 {
		return fmt.Errorf("at least one image is required (docscan scan -i <image>)")
	}

	images, err := loadImages(paths)
	if err != nil {
		return err
	}

	scanner, err := application.Scanner()
	if err != nil {
		return err
	}

	result, err := scanner.Scan(ctx, images)
	if result == nil {
		return err
	}

	if save {
		saved, saveErr := application.Store.SaveResult(result, "cli")
		if saveErr != nil {
			return fmt.Errorf("failed to save batch: %w", saveErr)
		}
		fmt.Fprintf(out, "✓ Saved batch %s\n", saved.ID)
	}

	if printErr := printResult(out, format, result); printErr != nil {
		return printErr
	}
	return err
}

func printResult(out io.Writer, format string, result *batch.Result) error {
	if format == "" {
		format = defaultFormat(out)
	}

	switch format {
	case FormatJSON:
		data, err := result.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, data)
		return nil
	case FormatText:
		fmt.Fprintln(out, result.Summary())
		if records := result.Records(); len(records) > 0 {
			fmt.Fprintln(out, export.FormatMessage(export.DefaultTitle, records))
		}
		if result.Failed > 0 {
			fmt.Fprintln(out, "\nFailed items:")
			for _, item := range result.Items {
				if item.Err != nil {
					fmt.Fprintf(out, "  - %s: %v\n", item.Source, item.Err)
				}
			}
		}
		return nil
	default:
		return writeRecords(out, format, result.Records())
	}
}

// RunHistory lists stored batches, newest first
func RunHistory(args []string, application *app.App, out io.Writer) error {
	limit := 20
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n", "--limit":
			n, err := needInt(args, i)
			if err != nil {
				return err
			}
			limit = n
			i++
		case "-h", "--help":
			PrintHistoryHelp(out)
			return nil
		}
	}

	batches, err := application.Store.ListBatches(limit)
	if err != nil {
		return err
	}

	if len(batches) == 0 {
		fmt.Fprintln(out, "No scans stored yet. Run: docscan scan --save -i <image>")
		return nil
	}

	fmt.Fprintln(out, "Scan History:")
	fmt.Fprintln(out, "=============")
	for _, b := range batches {
		fmt.Fprintf(out, "%s  %s  %-4s  %d ok / %d failed  (%dms)\n",
			b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.Source, b.Success, b.Failed, b.DurationMs)
	}
	return nil
}

// RunPurge deletes stored batches older than a cutoff
func RunPurge(args []string, application *app.App, out io.Writer) error {
	olderThan := application.Config.Storage.Retention
	texts := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--older-than":
			d, err := needDuration(args, i)
			if err != nil {
				return err
			}
			olderThan = d
			i++
		case "--texts":
			texts = true
		case "-h", "--help":
			PrintPurgeHelp(out)
			return nil
		}
	}

	n, err := application.Store.PurgeBefore(time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Purged %d batch(es) older than %s\n", n, olderThan)

	if texts {
		if err := application.Store.PurgeTexts(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Cleared OCR text cache")
	}
	return nil
}

// RunExport renders a stored batch as a WhatsApp link or a spreadsheet
func RunExport(args []string, application *app.App, out io.Writer) error {
	var batchID, number, xlsxPath string
	whatsapp := false

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "-b", "--batch":
			batchID, err = needValue(args, i)
			i++
		case "--whatsapp":
			whatsapp = true
		case "--number":
			number, err = needValue(args, i)
			whatsapp = true
			i++
		case "--xlsx":
			xlsxPath, err = needValue(args, i)
			i++
		case "-h", "--help":
			PrintExportHelp(out)
			return nil
		}
		if err != nil {
			return err
		}
	}

	if batchID == "" {
		return fmt.Errorf("--batch is required (see docscan history)")
	}

	stored, err := application.Store.GetBatch(batchID)
	if err != nil {
		return err
	}
	records := stored.DocumentRecords()

	if xlsxPath != "" {
		f, err := os.Create(xlsxPath)
		if err != nil {
			return err
		}
		if err := export.WriteXLSX(f, records); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %d record(s) to %s\n", len(records), xlsxPath)
	}

	exporter := export.NewExporter(application.Config.Export)
	if whatsapp {
		msg, err := exporter.WhatsApp(records, number)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg.URL)
		return nil
	}

	if xlsxPath == "" {
		if len(records) == 0 {
			return fmt.Errorf("batch %s has no extracted records", batchID)
		}
		fmt.Fprintln(out, export.FormatMessage(application.Config.Export.Title, records))
	}
	return nil
}

// RunToken issues a bearer token for the /api/batches endpoints
func RunToken(args []string, application *app.App, out io.Writer) error {
	subject := "cli"
	var ttl time.Duration

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "--subject":
			subject, err = needValue(args, i)
			i++
		case "--ttl":
			ttl, err = needDuration(args, i)
			i++
		case "-h", "--help":
			PrintTokenHelp(out)
			return nil
		}
		if err != nil {
			return err
		}
	}

	token, err := api.IssueToken(application.Config.Server.JWTSecret, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func HandleServeCommand(application *app.App) {
	fmt.Println("Starting docscan server...")
	fmt.Printf("URL: http://localhost:%d\n", application.Config.Server.Port)
	application.RunServer()
}

// HandleDoctorCommand checks that the OCR engine and data directory are usable
func HandleDoctorCommand(application *app.App, out io.Writer) int {
	fmt.Fprintln(out, "docscan Diagnostics")
	fmt.Fprintln(out, "===================")
	fmt.Fprintln(out)

	issues := 0
	cfg := application.Config

	if _, err := os.Stat(cfg.Storage.DataDir); err != nil {
		fmt.Fprintln(out, "❌ Data Directory: Does not exist")
		issues++
	} else {
		fmt.Fprintf(out, "✅ Data Directory: %s\n", cfg.Storage.DataDir)
	}

	if cfg.OCR.Engine == "gosseract" {
		fmt.Fprintln(out, "ℹ️  OCR Engine: gosseract (linked at build time with -tags ocr)")
	} else {
		tp := ocr.NewTesseractProvider(ocr.TesseractConfig{
			Binary:      cfg.OCR.Binary,
			TessdataDir: cfg.OCR.TessdataDir,
		}, nil)
		if !tp.IsAvailable() {
			fmt.Fprintf(out, "❌ Tesseract: %q not found\n", cfg.OCR.Binary)
			fmt.Fprintln(out, "   Install: sudo apt-get install tesseract-ocr tesseract-ocr-ita")
			issues++
		} else {
			fmt.Fprintln(out, "✅ Tesseract: Found")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			langs, err := tp.ListLanguages(ctx)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "⚠️  Languages: %v\n", err)
				issues++
			} else {
				missing := missingLanguages(cfg.OCR.Languages, langs)
				if len(missing) > 0 {
					fmt.Fprintf(out, "⚠️  Languages: missing %v\n", missing)
					issues++
				} else {
					fmt.Fprintf(out, "✅ Languages: %s\n", cfg.OCR.Languages)
				}
			}
		}
	}

	if cfg.Export.WhatsAppNumber == "" {
		fmt.Fprintln(out, "ℹ️  WhatsApp: No default number (pass --number when exporting)")
	} else {
		fmt.Fprintf(out, "✅ WhatsApp: %s\n", cfg.Export.WhatsAppNumber)
	}

	fmt.Fprintln(out)
	if issues == 0 {
		fmt.Fprintln(out, "✅ All checks passed!")
	} else {
		fmt.Fprintf(out, "⚠️  Found %d issue(s).\n", issues)
	}
	return issues
}

func missingLanguages(wanted string, installed []string) []string {
	have := make(map[string]bool, len(installed))
	for _, l := range installed {
		have[l] = true
	}
	var missing []string
	for _, l := range splitLanguages(wanted) {
		if !have[l] {
			missing = append(missing, l)
		}
	}
	return missing
}

func splitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '+' })
}
