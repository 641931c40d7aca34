package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/coolbeans/redline/pkg/redline"
	"github.com/coolbeans/redline/pkg/worddiff"
	"github.com/yuin/goldmark"
)

// commentaryMarkdown renders explanatory text. goldmark omits raw HTML
// unless configured with html.WithUnsafe, which is never done here.
var commentaryMarkdown = goldmark.New()

const pageStyle = `<style>
:root {
  --removed-bg: #fde2e1;
  --removed-fg: #a4262c;
  --added-bg: #dff6dd;
  --added-fg: #107c10;
  --bg-light: #f8f9fa;
  --border-color: #dee2e6;
  --text-color: #212529;
  --text-muted: #6c757d;
}
* { box-sizing: border-box; }
body {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
  line-height: 1.6;
  color: var(--text-color);
  max-width: 1400px;
  margin: 0 auto;
  padding: 20px;
  background: #fff;
}
h1 { border-bottom: 2px solid var(--border-color); padding-bottom: 0.3em; }
h2 { border-bottom: 1px solid var(--border-color); padding-bottom: 0.2em; margin-top: 2em; }
.summary { color: var(--text-muted); }
.status {
  background: var(--bg-light);
  border: 1px solid var(--border-color);
  border-radius: 4px;
  padding: 10px 15px;
}
.panels {
  display: grid;
  gap: 15px;
  margin: 1em 0;
}
.panel {
  border: 1px solid var(--border-color);
  border-radius: 8px;
  padding: 15px;
  white-space: pre-wrap;
}
.panel h3 {
  margin: 0 0 10px 0;
  color: var(--text-muted);
  font-size: 0.9em;
  text-transform: uppercase;
}
.panel-final { background: var(--bg-light); }
del.removed { background: var(--removed-bg); color: var(--removed-fg); }
ins.added { background: var(--added-bg); color: var(--added-fg); text-decoration: none; }
.phrase {
  display: inline-block;
  margin: 0 6px 6px 0;
  padding: 2px 10px;
  border-radius: 12px;
  background: #e7f1ff;
  font-size: 0.9em;
}
.commentary { border-left: 3px solid var(--border-color); padding-left: 15px; }
.footer {
  margin-top: 3em;
  padding-top: 1em;
  border-top: 1px solid var(--border-color);
  color: var(--text-muted);
  font-size: 0.9em;
}
</style>
`

// HTML renders payload as a self-contained HTML document with inline CSS.
func HTML(payload redline.Payload, options Options) (string, error) {
	var sb strings.Builder
	title := documentTitle(payload, options)

	writePageHeader(&sb, title)
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(title)))
	if err := writeComparisonHTML(&sb, payload, options); err != nil {
		return "", err
	}
	writePageFooter(&sb, options)

	return sb.String(), nil
}

// Report renders one standalone document holding a comparison per section,
// in the given order.
func Report(sections []Section, options Options) (string, error) {
	var sb strings.Builder
	title := options.Title
	if title == "" {
		title = "Redline Report"
	}

	writePageHeader(&sb, title)
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(title)))

	if len(sections) == 0 {
		sb.WriteString(fmt.Sprintf("<p class=\"status\">%s</p>\n", html.EscapeString("No sections to compare.")))
	} else {
		totalChanges := 0
		for _, section := range sections {
			totalChanges += section.Payload.ChangeCount
		}
		sb.WriteString(fmt.Sprintf("<p class=\"summary\">%d sections, %s</p>\n",
			len(sections), html.EscapeString(changeSummary(totalChanges))))

		sb.WriteString("<ul class=\"toc\">\n")
		for index, section := range sections {
			sb.WriteString(fmt.Sprintf("<li><a href=\"#section-%d\">%s</a></li>\n",
				index+1, html.EscapeString(sectionHeading(section))))
		}
		sb.WriteString("</ul>\n")
	}

	for index, section := range sections {
		sb.WriteString(fmt.Sprintf("<section id=\"section-%d\">\n", index+1))
		sb.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(sectionHeading(section))))
		if err := writeComparisonHTML(&sb, section.Payload, options); err != nil {
			return "", fmt.Errorf("failed to render section %q: %w", section.Key, err)
		}
		sb.WriteString("</section>\n")
	}

	writePageFooter(&sb, options)
	return sb.String(), nil
}

func sectionHeading(section Section) string {
	if section.Key != "" {
		return section.Key
	}
	if section.Payload.Title != "" {
		return section.Payload.Title
	}
	return "Untitled section"
}

func writePageHeader(sb *strings.Builder, title string) {
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(title)))
	sb.WriteString(pageStyle)
	sb.WriteString("</head>\n<body>\n")
}

func writePageFooter(sb *strings.Builder, options Options) {
	if !options.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("<div class=\"footer\">Generated by redline on %s</div>\n",
			html.EscapeString(options.GeneratedAt.Format("2006-01-02 15:04 MST"))))
	}
	sb.WriteString("</body>\n</html>\n")
}

// writeComparisonHTML writes the body of one comparison: phrase labels, a
// status or summary line, the panels, and optional commentary.
func writeComparisonHTML(sb *strings.Builder, payload redline.Payload, options Options) error {
	if len(payload.AgreementPhrases) > 0 {
		sb.WriteString("<div class=\"phrases\">\n")
		for _, phrase := range payload.AgreementPhrases {
			sb.WriteString(fmt.Sprintf("<span class=\"phrase\">%s</span>\n", html.EscapeString(phrase)))
		}
		sb.WriteString("</div>\n")
	}

	if message := statusMessage(payload); message != "" {
		statusClass := "status status-identical"
		if payload.NoContent {
			statusClass = "status status-empty"
		}
		sb.WriteString(fmt.Sprintf("<p class=\"%s\">%s</p>\n", statusClass, html.EscapeString(message)))
	} else {
		sb.WriteString(fmt.Sprintf("<p class=\"summary\">%s across %d sources</p>\n",
			html.EscapeString(changeSummary(payload.ChangeCount)), len(payload.SourcePanels())))
	}

	if len(payload.Panels) > 0 {
		sb.WriteString(fmt.Sprintf("<div class=\"panels\" style=\"grid-template-columns: repeat(%d, 1fr);\">\n", len(payload.Panels)))
		for _, panel := range payload.Panels {
			writePanelHTML(sb, panel)
		}
		sb.WriteString("</div>\n")
	}

	if options.IncludeCommentary && strings.TrimSpace(payload.Commentary) != "" {
		var rendered bytes.Buffer
		if err := commentaryMarkdown.Convert([]byte(payload.Commentary), &rendered); err != nil {
			return fmt.Errorf("failed to render commentary: %w", err)
		}
		sb.WriteString("<div class=\"commentary\">\n<h3>Joint Explanatory Statement</h3>\n")
		sb.WriteString(rendered.String())
		sb.WriteString("</div>\n")
	}
	return nil
}

func writePanelHTML(sb *strings.Builder, panel redline.Panel) {
	sb.WriteString(fmt.Sprintf("<div class=\"panel panel-%s\">\n", html.EscapeString(string(panel.Role))))
	heading := panel.Label
	if panel.Role == redline.RoleSource {
		heading = fmt.Sprintf("%s (%s)", panel.Label, changeSummary(panel.ChangeCount))
	}
	sb.WriteString(fmt.Sprintf("<h3>%s</h3>\n", html.EscapeString(heading)))
	sb.WriteString("<div class=\"panel-text\">")
	for _, span := range panel.Spans {
		escaped := html.EscapeString(span.Text)
		switch span.Kind {
		case worddiff.Removed:
			sb.WriteString("<del class=\"removed\">" + escaped + "</del>")
		case worddiff.Added:
			sb.WriteString("<ins class=\"added\">" + escaped + "</ins>")
		default:
			sb.WriteString(escaped)
		}
	}
	sb.WriteString("</div>\n</div>\n")
}
