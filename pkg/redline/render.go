// Package redline renders word-level diffs as aligned, color-coded redline
// views. Render turns one edit script into a source view and a final view;
// Builder compares any number of source versions against one final text and
// assembles the multi-panel Payload handed to the presentation layer.
package redline

import (
	"unicode"
	"unicode/utf8"

	"github.com/coolbeans/redline/pkg/worddiff"
)

// Span is a run of text styled by its diff kind. In a source view Removed
// spans are struck through; in a final view Added spans are highlighted.
type Span struct {
	Text string        `json:"text" yaml:"text"`
	Kind worddiff.Kind `json:"kind" yaml:"kind"`
}

// Result is the two-way rendering of one edit script.
type Result struct {
	SourceView  []Span `json:"sourceView" yaml:"sourceView"`
	FinalView   []Span `json:"finalView" yaml:"finalView"`
	ChangeCount int    `json:"changeCount" yaml:"changeCount"`

	// Identical is true when both sides have text and no changes.
	Identical bool `json:"identical" yaml:"identical"`

	// NoContent is true when there was nothing to compare: both sides
	// were empty after normalization, or the diff could not be computed.
	// It is distinct from Identical so the caller can show "no text
	// available" instead of "no differences".
	NoContent bool `json:"noContent" yaml:"noContent"`

	// RemovedWords and AddedWords count the word tokens inside changed
	// spans, for summary lines.
	RemovedWords int `json:"removedWords" yaml:"removedWords"`
	AddedWords   int `json:"addedWords" yaml:"addedWords"`
}

// NoContentResult is the result for a comparison with nothing to show.
func NoContentResult() Result {
	return Result{
		SourceView: []Span{},
		FinalView:  []Span{},
		NoContent:  true,
	}
}

// Render splits an edit script into its two views. The source view keeps
// Retained and Removed tokens; the final view keeps Retained and Added
// tokens. An empty script renders as NoContentResult.
func Render(tokens []worddiff.Token) Result {
	if len(tokens) == 0 {
		return NoContentResult()
	}

	result := Result{
		SourceView: make([]Span, 0, len(tokens)),
		FinalView:  make([]Span, 0, len(tokens)),
	}

	for _, token := range tokens {
		span := Span{Text: token.Value, Kind: token.Kind}
		switch token.Kind {
		case worddiff.Retained:
			result.SourceView = append(result.SourceView, span)
			result.FinalView = append(result.FinalView, span)
		case worddiff.Removed:
			result.SourceView = append(result.SourceView, span)
			result.ChangeCount++
			result.RemovedWords += countWords(token.Value)
		case worddiff.Added:
			result.FinalView = append(result.FinalView, span)
			result.ChangeCount++
			result.AddedWords += countWords(token.Value)
		}
	}

	result.Identical = result.ChangeCount == 0
	return result
}

// CompareTwo diffs before against after with the default engine and
// renders the result. A diff failure renders as NoContentResult.
func CompareTwo(before, after string) Result {
	return defaultBuilder.CompareTwo(before, after)
}

func countWords(text string) int {
	count := 0
	for _, token := range worddiff.Tokenize(text) {
		if isWordToken(token) {
			count++
		}
	}
	return count
}

// isWordToken reports whether a token is a letter/number run. Tokens are
// homogeneous, so the first rune decides.
func isWordToken(token string) bool {
	if token == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(token)
	return unicode.IsLetter(first) || unicode.IsNumber(first)
}
