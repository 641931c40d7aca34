// Package normalize cleans raw extracted legislative text into consistently
// punctuated prose before it is diffed. Every renderer in the module goes
// through the same Normalizer so that inline and standalone comparisons agree
// byte for byte.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options controls optional normalization passes.
type Options struct {
	// UnicodeNFC composes decomposed characters (NFC) before any other
	// pass. PDF extraction frequently emits combining accents separately.
	UnicodeNFC bool `yaml:"unicode_nfc" json:"unicode_nfc"`
}

// whitespaceClass matches the same characters strings.TrimSpace strips, so
// collapsing and trimming agree on what counts as whitespace.
const whitespaceClass = `[\s\x{0B}\x{85}\p{Z}]`

// Normalizer applies the cleanup passes using compiled regular expressions.
// It only reads from its patterns, so one Normalizer is safe for concurrent
// use across goroutines.
type Normalizer struct {
	options Options
	logger  *zap.Logger

	// sectionNumberGluePattern matches "132.A": a section number token
	// directly followed by a capital letter.
	sectionNumberGluePattern *regexp.Regexp

	// headerSentencePattern matches a sentence that opens with a section
	// number and letter ("132. Appropriations ...") and runs to the next
	// period, when the following text starts with a capital letter. Any
	// whitespace run may follow the section number, since a later pass
	// collapses it to one space and must not create a new match.
	headerSentencePattern *regexp.Regexp

	// paragraphMarkerGluePattern matches "(1)the": a parenthesized integer
	// directly followed by a lowercase letter.
	paragraphMarkerGluePattern *regexp.Regexp

	// periodWhitespacePattern matches a whitespace run after a period.
	periodWhitespacePattern *regexp.Regexp

	// whitespaceRunPattern matches any whitespace run.
	whitespaceRunPattern *regexp.Regexp
}

// New creates a Normalizer with all patterns compiled. A nil logger is
// replaced by a no-op logger.
func New(options Options, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		options:                    options,
		logger:                     logger,
		sectionNumberGluePattern:   regexp.MustCompile(`(\d+[A-Z]?\.)([A-Z])`),
		headerSentencePattern:      regexp.MustCompile(`(\d+[A-Z]?\.` + whitespaceClass + `+[A-Z][^.]*\.)` + whitespaceClass + `*([A-Z])`),
		paragraphMarkerGluePattern: regexp.MustCompile(`(\(\d+\))([a-z])`),
		periodWhitespacePattern:    regexp.MustCompile(`\.` + whitespaceClass + `+`),
		whitespaceRunPattern:       regexp.MustCompile(whitespaceClass + `+`),
	}
}

var defaultNormalizer = New(Options{}, nil)

// Default returns the shared Normalizer used by the package-level functions.
func Default() *Normalizer {
	return defaultNormalizer
}

// Normalize cleans text with the default Normalizer.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Options returns the options the Normalizer was built with.
func (normalizer *Normalizer) Options() Options {
	return normalizer.options
}

// Normalize applies the cleanup passes in order:
//
//  1. trim surrounding whitespace
//  2. "132.A" becomes "132. A"
//  3. a section header sentence is split from the following sentence
//  4. "(1)the" becomes "(1) the"
//  5. whitespace after a period becomes one space
//  6. every remaining whitespace run becomes one space
//  7. trim again
//
// The result is idempotent. If a pass fails or panics the original text is returned
// unchanged and the failure is logged.
func (normalizer *Normalizer) Normalize(text string) (normalized string) {
	if text == "" {
		return ""
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			normalizer.logger.Warn("normalization failed, keeping original text",
				zap.String("panic", fmt.Sprint(recovered)),
				zap.Int("length", len(text)),
			)
			normalized = text
		}
	}()

	normalized, err := normalizer.apply(text)
	if err != nil {
		normalizer.logger.Warn("normalization failed, keeping original text",
			zap.Error(err),
			zap.Int("length", len(text)),
		)
		return text
	}
	return normalized
}

func (normalizer *Normalizer) apply(text string) (string, error) {
	working := text
	if normalizer.options.UnicodeNFC {
		composed, _, err := transform.String(norm.NFC, working)
		if err != nil {
			return "", fmt.Errorf("unicode composition: %w", err)
		}
		working = composed
	}

	working = strings.TrimSpace(working)
	working = normalizer.sectionNumberGluePattern.ReplaceAllString(working, "$1 $2")
	working = normalizer.headerSentencePattern.ReplaceAllString(working, "$1\n\n$2")
	working = normalizer.paragraphMarkerGluePattern.ReplaceAllString(working, "$1 $2")
	working = normalizer.periodWhitespacePattern.ReplaceAllString(working, ". ")
	working = normalizer.whitespaceRunPattern.ReplaceAllString(working, " ")
	return strings.TrimSpace(working), nil
}

// NormalizeValue normalizes a loosely typed field value. Missing values and
// values that are not strings normalize to the empty string.
func (normalizer *Normalizer) NormalizeValue(value any) string {
	switch typed := value.(type) {
	case string:
		return normalizer.Normalize(typed)
	case *string:
		if typed == nil {
			return ""
		}
		return normalizer.Normalize(*typed)
	default:
		return ""
	}
}
