package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/docscan/internal/export"
	"github.com/gmsas95/docscan/internal/extract"
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// defaultFormat picks text for terminals and JSON for pipes
func defaultFormat(out io.Writer) string {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return FormatText
	}
	return FormatJSON
}

func writeRecords(out io.Writer, format string, records []extract.DocumentRecord) error {
	if format == "" {
		format = defaultFormat(out)
	}

	switch format {
	case FormatText:
		fmt.Fprintln(out, export.FormatMessage(export.DefaultTitle, records))
		return nil
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(records) == 1 {
			return enc.Encode(records[0])
		}
		return enc.Encode(records)
	case FormatYAML:
		doc := &yaml.Node{Kind: yaml.SequenceNode}
		for _, rec := range records {
			doc.Content = append(doc.Content, recordNode(rec))
		}
		if len(records) == 1 {
			doc = doc.Content[0]
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// recordNode keeps fields in display order, which a map would lose
func recordNode(rec extract.DocumentRecord) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	node.Content = append(node.Content, scalar("index"), &yaml.Node{
		Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(rec.Index()),
	})

	fields := &yaml.Node{Kind: yaml.MappingNode}
	for _, nf := range rec.Fields() {
		f := &yaml.Node{Kind: yaml.MappingNode}
		f.Content = append(f.Content, scalar("status"), scalar(nf.Field.Status().String()))
		if nf.Field.IsFound() {
			f.Content = append(f.Content, scalar("value"), scalar(nf.Field.Value()))
		}
		fields.Content = append(fields.Content, scalar(nf.Kind.String()), f)
	}
	node.Content = append(node.Content, scalar("fields"), fields)

	if rec.RawText() != "" {
		node.Content = append(node.Content, scalar("raw_text"), scalar(rec.RawText()))
	}
	return node
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
