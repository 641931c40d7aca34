// Package export renders comparison payloads for people and programs:
// standalone HTML pages, Markdown redlines, and JSON or YAML documents.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/redline/pkg/redline"
	"gopkg.in/yaml.v3"
)

// Format names an output rendering.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat resolves a user-supplied format name. The empty string selects
// JSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "html", "htm":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want html, markdown, json or yaml)", name)
	}
}

// ContentType returns the HTTP media type for the format.
func (format Format) ContentType() string {
	switch format {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

// Options controls the human-readable renderings.
type Options struct {
	// Title heads the document. Payload titles are used when empty.
	Title string

	// IncludeCommentary renders the payload's joint explanatory text.
	IncludeCommentary bool

	// GeneratedAt is printed in the footer when non-zero.
	GeneratedAt time.Time
}

const (
	noContentMessage = "No text available for comparison."
	identicalMessage = "No differences: the final text matches every source."
)

// Section is one titled comparison inside a multi-group report.
type Section struct {
	Key     string          `json:"key" yaml:"key"`
	Payload redline.Payload `json:"payload" yaml:"payload"`
}

// Render dispatches to the renderer for format.
func Render(payload redline.Payload, format Format, options Options) (string, error) {
	switch format {
	case FormatHTML:
		return HTML(payload, options)
	case FormatMarkdown:
		return Markdown(payload, options), nil
	case FormatYAML:
		return YAML(payload)
	case FormatJSON:
		return JSON(payload)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// JSON renders payload as indented JSON.
func JSON(payload redline.Payload) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal comparison to JSON: %w", err)
	}
	return string(data), nil
}

// YAML renders payload as a YAML document.
func YAML(payload redline.Payload) (string, error) {
	data, err := yaml.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal comparison to YAML: %w", err)
	}
	return string(data), nil
}

// statusMessage describes a payload that has nothing highlighted.
func statusMessage(payload redline.Payload) string {
	switch {
	case payload.NoContent:
		return noContentMessage
	case payload.Identical:
		return identicalMessage
	default:
		return ""
	}
}

func changeSummary(changeCount int) string {
	if changeCount == 1 {
		return "1 change"
	}
	return fmt.Sprintf("%d changes", changeCount)
}

func documentTitle(payload redline.Payload, options Options) string {
	if options.Title != "" {
		return options.Title
	}
	if payload.Title != "" {
		return payload.Title
	}
	return "Redline Comparison"
}
