package redline

import (
	"fmt"
	"strings"

	"github.com/coolbeans/redline/pkg/group"
	"github.com/coolbeans/redline/pkg/normalize"
	"github.com/coolbeans/redline/pkg/records"
	"github.com/coolbeans/redline/pkg/worddiff"
	"go.uber.org/zap"
)

// DefaultFinalLabel labels the final panel unless overridden.
const DefaultFinalLabel = "Final Enrolled"

// PanelRole distinguishes source panels from the final panel.
type PanelRole string

const (
	// RoleSource marks a panel showing one source version.
	RoleSource PanelRole = "source"
	// RoleFinal marks the panel showing the final text.
	RoleFinal PanelRole = "final"
)

// Source is one version of a section to compare against the final text.
type Source struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// Panel is one column of a multi-source comparison.
type Panel struct {
	Label       string    `json:"label" yaml:"label"`
	Role        PanelRole `json:"role" yaml:"role"`
	Spans       []Span    `json:"spans" yaml:"spans"`
	ChangeCount int       `json:"changeCount" yaml:"changeCount"`
}

// Payload is the transport-agnostic rendering of a comparison: N source
// panels followed by one final panel. Export adapters turn it into HTML,
// Markdown, JSON or YAML.
type Payload struct {
	// Title names the compared section, usually the group key.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	Panels      []Panel `json:"panels" yaml:"panels"`
	ChangeCount int     `json:"changeCount" yaml:"changeCount"`
	Identical   bool    `json:"identical" yaml:"identical"`
	NoContent   bool    `json:"noContent" yaml:"noContent"`

	// AgreementPhrases are displayed as labels and never diffed.
	AgreementPhrases records.Phrases `json:"agreementPhrases" yaml:"agreementPhrases"`

	// Commentary carries joint explanatory text when the payload was built
	// from a group.
	Commentary string `json:"commentary,omitempty" yaml:"commentary,omitempty"`
}

// SourcePanels returns the source panels in input order.
func (payload Payload) SourcePanels() []Panel {
	panels := make([]Panel, 0, len(payload.Panels))
	for _, panel := range payload.Panels {
		if panel.Role == RoleSource {
			panels = append(panels, panel)
		}
	}
	return panels
}

// FinalPanel returns the final panel, if the payload has one.
func (payload Payload) FinalPanel() (Panel, bool) {
	for _, panel := range payload.Panels {
		if panel.Role == RoleFinal {
			return panel, true
		}
	}
	return Panel{}, false
}

// Builder compares source versions against a final text. It holds no
// mutable state, so concurrent comparisons may share one Builder.
type Builder struct {
	normalizer   *normalize.Normalizer
	engine       *worddiff.Engine
	logger       *zap.Logger
	finalLabel   string
	sourceLabels map[string]string
	diffOptions  []worddiff.Option
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithNormalizer sets the normalizer used for every text in a comparison.
func WithNormalizer(normalizer *normalize.Normalizer) BuilderOption {
	return func(builder *Builder) {
		if normalizer != nil {
			builder.normalizer = normalizer
		}
	}
}

// WithLogger sets the logger used to report diff failures.
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(builder *Builder) {
		if logger != nil {
			builder.logger = logger
		}
	}
}

// WithFinalLabel sets the final panel's label.
func WithFinalLabel(label string) BuilderOption {
	return func(builder *Builder) {
		if strings.TrimSpace(label) != "" {
			builder.finalLabel = label
		}
	}
}

// WithSourceLabels maps source bill types to panel labels, overriding
// records.SourceLabel. Keys match case-insensitively.
func WithSourceLabels(labels map[string]string) BuilderOption {
	return func(builder *Builder) {
		for billType, label := range labels {
			builder.sourceLabels[strings.ToUpper(strings.TrimSpace(billType))] = label
		}
	}
}

// WithDiffOptions passes options to the word diff engine.
func WithDiffOptions(options ...worddiff.Option) BuilderOption {
	return func(builder *Builder) {
		builder.diffOptions = append(builder.diffOptions, options...)
	}
}

// NewBuilder creates a Builder. Without options it uses the default
// normalizer, a no-op logger and DefaultFinalLabel.
func NewBuilder(options ...BuilderOption) *Builder {
	builder := &Builder{
		normalizer:   normalize.Default(),
		logger:       zap.NewNop(),
		finalLabel:   DefaultFinalLabel,
		sourceLabels: make(map[string]string),
	}
	for _, option := range options {
		option(builder)
	}
	builder.engine = worddiff.New(builder.normalizer, builder.diffOptions...)
	return builder
}

var defaultBuilder = NewBuilder()

// BuildComparison compares sources against finalText with the default
// Builder.
func BuildComparison(sources []Source, finalText string, phrases records.Phrases) Payload {
	return defaultBuilder.Build(sources, finalText, phrases)
}

// CompareTwo diffs before against after and renders the result. A diff
// failure is logged and renders as NoContentResult.
func (builder *Builder) CompareTwo(before, after string) Result {
	tokens, err := builder.engine.Diff(before, after)
	if err != nil {
		builder.logger.Warn("word diff failed, reporting no content", zap.Error(err))
		return NoContentResult()
	}
	return Render(tokens)
}

// Build diffs every source against the final text, in input order, and
// assembles a payload of len(sources)+1 panels. Each source panel shows
// that source's own view. The final panel shows the final view of the
// first source's diff only, so its Added highlighting is anchored to
// sources[0]. ChangeCount is the sum over all sources' diffs.
//
// With no sources, an empty final text, or a failed diff the payload is
// marked NoContent and carries no panels.
func (builder *Builder) Build(sources []Source, finalText string, phrases records.Phrases) Payload {
	cleanedPhrases := records.NewPhrases(phrases)

	normalizedFinal := builder.normalizer.Normalize(finalText)
	if len(sources) == 0 || normalizedFinal == "" {
		return noContentPayload(cleanedPhrases)
	}

	panels := make([]Panel, 0, len(sources)+1)
	var anchoredFinalView []Span
	anchoredChangeCount := 0
	totalChanges := 0

	for sourceIndex, source := range sources {
		tokens, err := builder.engine.Diff(source.Text, normalizedFinal)
		if err != nil {
			builder.logger.Warn("word diff failed, reporting no content",
				zap.Int("source_index", sourceIndex),
				zap.String("source_label", source.Label),
				zap.Error(err),
			)
			return noContentPayload(cleanedPhrases)
		}

		rendered := Render(tokens)
		if sourceIndex == 0 {
			anchoredFinalView = rendered.FinalView
			anchoredChangeCount = rendered.ChangeCount
		}

		label := source.Label
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("Source %d", sourceIndex+1)
		}
		panels = append(panels, Panel{
			Label:       label,
			Role:        RoleSource,
			Spans:       rendered.SourceView,
			ChangeCount: rendered.ChangeCount,
		})
		totalChanges += rendered.ChangeCount
	}

	panels = append(panels, Panel{
		Label:       builder.finalLabel,
		Role:        RoleFinal,
		Spans:       anchoredFinalView,
		ChangeCount: anchoredChangeCount,
	})

	return Payload{
		Panels:           panels,
		ChangeCount:      totalChanges,
		Identical:        totalChanges == 0,
		AgreementPhrases: cleanedPhrases,
	}
}

// BuildGroup opens a comparison for a group: one source per row labelled
// from its bill type, the first non-blank final enrolled text among the
// rows, and the ordered union of the rows' agreement phrases.
func (builder *Builder) BuildGroup(g group.Group) Payload {
	sources := builder.SourcesFromGroup(g)

	phraseLists := make([]records.Phrases, 0, len(g.Rows))
	for _, row := range g.Rows {
		phraseLists = append(phraseLists, row.AgreementPhrases)
	}

	payload := builder.Build(sources, group.FinalText(g), records.Merge(phraseLists...))
	payload.Title = g.Key
	payload.Commentary = groupCommentary(g)
	return payload
}

// SourcesFromGroup turns each row of a group into a Source. Repeated labels
// get a numeric suffix so panels stay distinguishable.
func (builder *Builder) SourcesFromGroup(g group.Group) []Source {
	sources := make([]Source, 0, len(g.Rows))
	labelUses := make(map[string]int)
	for rowIndex, row := range g.Rows {
		label := builder.sourceLabel(row.SourceBillType, rowIndex+1)
		labelUses[label]++
		if uses := labelUses[label]; uses > 1 {
			label = fmt.Sprintf("%s (%d)", label, uses)
		}
		sources = append(sources, Source{Label: label, Text: row.SourceFullSectionText})
	}
	return sources
}

func (builder *Builder) sourceLabel(billType string, position int) string {
	if label, ok := builder.sourceLabels[strings.ToUpper(strings.TrimSpace(billType))]; ok && label != "" {
		return label
	}
	return records.SourceLabel(billType, position)
}

// groupCommentary joins the distinct non-blank explanatory texts of a group.
func groupCommentary(g group.Group) string {
	seen := make(map[string]bool)
	var parts []string
	for _, row := range g.Rows {
		text := strings.TrimSpace(row.JointExplanatoryText)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func noContentPayload(phrases records.Phrases) Payload {
	return Payload{
		Panels:           []Panel{},
		NoContent:        true,
		AgreementPhrases: phrases,
	}
}
