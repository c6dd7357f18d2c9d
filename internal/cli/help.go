package cli

import (
	"fmt"
	"io"
)

func PrintHelp(out io.Writer) {
	fmt.Fprintln(out, "docscan - read guest ID documents into structured fields")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: docscan [--config path] [--data dir] <command> [options]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  extract   Extract fields from OCR text (file or stdin)")
	fmt.Fprintln(out, "  scan      OCR and extract one or more images")
	fmt.Fprintln(out, "  watch     Scan every image dropped into a directory")
	fmt.Fprintln(out, "  serve     Run the HTTP API")
	fmt.Fprintln(out, "  history   List stored scan batches")
	fmt.Fprintln(out, "  export    Export a stored batch (WhatsApp link or XLSX)")
	fmt.Fprintln(out, "  purge     Delete stored batches past retention")
	fmt.Fprintln(out, "  token     Issue an API token for /api/batches")
	fmt.Fprintln(out, "  doctor    Check the OCR engine and data directory")
	fmt.Fprintln(out, "  version   Print the version")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'docscan <command> --help' for command options.")
}

func PrintExtractHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan extract [-f file]... [--index N] [--format text|json|yaml]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Reads stdin when no file is given. --index numbers the first document (default 1).")
}

func PrintScanHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan scan -i <image> [-i <image>]... [options]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, "  -i, --image <path>        Image to scan (repeatable, or pass paths as arguments)")
	fmt.Fprintln(out, "  -c, --concurrency <n>     Images recognized in parallel")
	fmt.Fprintln(out, "      --save                Store the batch in scan history")
	fmt.Fprintln(out, "      --format <fmt>        text, json or yaml")
}

func PrintWatchHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan watch [-d dir] [--no-save]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Scans each new image in dir (default .) and stores it unless --no-save is set.")
}

func PrintHistoryHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan history [--limit N]")
}

func PrintPurgeHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan purge [--older-than 72h] [--texts]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Defaults to storage.retention. --texts also clears the OCR text cache.")
}

func PrintExportHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan export --batch <id> [--whatsapp] [--number <phone>] [--xlsx <file>]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Without --whatsapp or --xlsx the message text is printed.")
}

func PrintTokenHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: docscan token [--subject name] [--ttl 168h]")
}
