package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/coolbeans/redline/pkg/redline"
	"github.com/coolbeans/redline/pkg/worddiff"
)

// Markdown renders payload as a Markdown redline: removed text as
// ~~strikethrough~~ and added text as **bold**.
func Markdown(payload redline.Payload, options Options) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(documentTitle(payload, options))))
	writeComparisonMarkdown(&sb, payload, options, "##")

	if !options.GeneratedAt.IsZero() {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("*Generated by redline on %s*\n", options.GeneratedAt.Format("2006-01-02")))
	}
	return sb.String()
}

// ReportMarkdown renders several sections into one Markdown document.
func ReportMarkdown(sections []Section, options Options) string {
	var sb strings.Builder
	title := options.Title
	if title == "" {
		title = "Redline Report"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(title)))
	if len(sections) == 0 {
		sb.WriteString("No sections to compare.\n")
	}
	for _, section := range sections {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdown(sectionHeading(section))))
		writeComparisonMarkdown(&sb, section.Payload, options, "###")
	}
	return sb.String()
}

func writeComparisonMarkdown(sb *strings.Builder, payload redline.Payload, options Options, headingLevel string) {
	if len(payload.AgreementPhrases) > 0 {
		labels := make([]string, len(payload.AgreementPhrases))
		for i, phrase := range payload.AgreementPhrases {
			labels[i] = "`" + strings.ReplaceAll(phrase, "`", "'") + "`"
		}
		sb.WriteString("Agreement: " + strings.Join(labels, " ") + "\n\n")
	}

	if message := statusMessage(payload); message != "" {
		sb.WriteString("*" + message + "*\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("**%s** across %d sources\n\n", changeSummary(payload.ChangeCount), len(payload.SourcePanels())))
	}

	for _, panel := range payload.Panels {
		heading := panel.Label
		if panel.Role == redline.RoleSource {
			heading = fmt.Sprintf("%s (%s)", panel.Label, changeSummary(panel.ChangeCount))
		}
		sb.WriteString(fmt.Sprintf("%s %s\n\n", headingLevel, escapeMarkdown(heading)))
		sb.WriteString(markdownSpans(panel.Spans))
		sb.WriteString("\n\n")
	}

	if options.IncludeCommentary && strings.TrimSpace(payload.Commentary) != "" {
		sb.WriteString(fmt.Sprintf("%s Joint Explanatory Statement\n\n", headingLevel))
		for _, line := range strings.Split(strings.TrimSpace(payload.Commentary), "\n") {
			sb.WriteString("> " + line + "\n")
		}
		sb.WriteString("\n")
	}
}

func markdownSpans(spans []redline.Span) string {
	var sb strings.Builder
	for _, span := range spans {
		switch span.Kind {
		case worddiff.Removed:
			sb.WriteString(wrapMarker(span.Text, "~~"))
		case worddiff.Added:
			sb.WriteString(wrapMarker(span.Text, "**"))
		default:
			sb.WriteString(escapeMarkdown(span.Text))
		}
	}
	return sb.String()
}

// wrapMarker places marker around text with surrounding whitespace kept
// outside, since emphasis delimiters must touch the text they wrap.
func wrapMarker(text, marker string) string {
	core := strings.TrimFunc(text, unicode.IsSpace)
	if core == "" {
		return text
	}
	start := strings.Index(text, core)
	leading := text[:start]
	trailing := text[start+len(core):]
	return leading + marker + escapeMarkdown(core) + marker + trailing
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"#", `\#`,
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
