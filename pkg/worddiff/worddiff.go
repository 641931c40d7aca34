// Package worddiff computes word-level differences between two versions of a
// legislative text. Both sides are normalized first, split into word,
// whitespace and punctuation tokens, and aligned with a minimal edit script.
package worddiff

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coolbeans/redline/pkg/normalize"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind classifies a diff token.
type Kind int

const (
	// Retained marks text present in both versions.
	Retained Kind = iota
	// Removed marks text present only in the source version.
	Removed
	// Added marks text present only in the final version.
	Added
)

// String returns a human-readable label for the kind.
func (k Kind) String() string {
	switch k {
	case Retained:
		return "retained"
	case Removed:
		return "removed"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its label.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind label.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "retained":
		*k = Retained
	case "removed":
		*k = Removed
	case "added":
		*k = Added
	default:
		return fmt.Errorf("unknown diff kind %q", string(text))
	}
	return nil
}

// Token is one run of consecutive words sharing the same kind.
type Token struct {
	Value string `json:"value" yaml:"value"`
	Kind  Kind   `json:"kind" yaml:"kind"`
}

var (
	// ErrTooManyTokens is returned when the two texts together use more
	// distinct tokens than can be encoded for alignment.
	ErrTooManyTokens = errors.New("too many distinct tokens")

	// ErrDiffFailed is returned when alignment could not produce a result.
	ErrDiffFailed = errors.New("word diff failed")
)

// tokenPattern splits text into letter/number runs, whitespace runs and
// single punctuation characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+|\s+|[^\p{L}\p{N}\s]`)

// Tokenize splits text into word tokens. Concatenating the tokens yields the
// original text.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(text, -1)
}

// surrogateStart and surrogateSize describe the UTF-16 surrogate block,
// which cannot be carried in a Go string and is skipped when interning.
const (
	surrogateStart = 0xD800
	surrogateSize  = 0x800
	maxTokenRune   = 0x10FFFF
)

// maxVocabulary is the number of distinct tokens that can be interned.
const maxVocabulary = maxTokenRune + 1 - surrogateSize

// Engine aligns two texts word by word. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	normalizer      *normalize.Normalizer
	matcher         *diffmatchpatch.DiffMatchPatch
	vocabularyLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithVocabularyLimit caps the distinct tokens one comparison may use.
// Comparisons over the cap fail with ErrTooManyTokens. Values outside
// 1..the encodable maximum are ignored.
func WithVocabularyLimit(limit int) Option {
	return func(engine *Engine) {
		if limit > 0 && limit <= maxVocabulary {
			engine.vocabularyLimit = limit
		}
	}
}

// New creates an Engine that normalizes both inputs with normalizer. A nil
// normalizer uses the package default.
func New(normalizer *normalize.Normalizer, options ...Option) *Engine {
	if normalizer == nil {
		normalizer = normalize.Default()
	}
	matcher := diffmatchpatch.New()
	// No deadline: a timed-out bisection returns a non-minimal script that
	// can differ between runs.
	matcher.DiffTimeout = 0
	engine := &Engine{
		normalizer:      normalizer,
		matcher:         matcher,
		vocabularyLimit: maxVocabulary,
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

var defaultEngine = New(nil)

// DiffWords diffs two texts with the default Engine.
func DiffWords(before, after string) ([]Token, error) {
	return defaultEngine.Diff(before, after)
}

// Diff normalizes before and after and returns the word-level edit script
// between them. Concatenating the non-Added token values reproduces the
// normalized before text; concatenating the non-Removed values reproduces
// the normalized after text. Two empty texts yield an empty script.
func (engine *Engine) Diff(before, after string) (tokens []Token, err error) {
	normalizedBefore := engine.normalizer.Normalize(before)
	normalizedAfter := engine.normalizer.Normalize(after)

	if normalizedBefore == "" && normalizedAfter == "" {
		return []Token{}, nil
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			tokens = nil
			err = fmt.Errorf("%w: %v", ErrDiffFailed, recovered)
		}
	}()

	vocabulary := newVocabulary(engine.vocabularyLimit)
	beforeRunes, err := vocabulary.encode(Tokenize(normalizedBefore))
	if err != nil {
		return nil, err
	}
	afterRunes, err := vocabulary.encode(Tokenize(normalizedAfter))
	if err != nil {
		return nil, err
	}

	diffs := engine.matcher.DiffMainRunes(beforeRunes, afterRunes, false)
	return vocabulary.decode(diffs)
}

// vocabulary interns each distinct token as a single rune so the character
// aligner works on whole words.
type vocabulary struct {
	indexByToken map[string]int
	tokens       []string
	limit        int
}

func newVocabulary(limit int) *vocabulary {
	return &vocabulary{indexByToken: make(map[string]int), limit: limit}
}

func (v *vocabulary) encode(words []string) ([]rune, error) {
	encoded := make([]rune, 0, len(words))
	for _, word := range words {
		index, ok := v.indexByToken[word]
		if !ok {
			if len(v.tokens) >= v.limit {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyTokens, v.limit)
			}
			index = len(v.tokens)
			v.indexByToken[word] = index
			v.tokens = append(v.tokens, word)
		}
		encoded = append(encoded, indexToRune(index))
	}
	return encoded, nil
}

func (v *vocabulary) decode(diffs []diffmatchpatch.Diff) ([]Token, error) {
	tokens := make([]Token, 0, len(diffs))
	for _, diff := range diffs {
		var value strings.Builder
		for _, r := range diff.Text {
			index := runeToIndex(r)
			if index < 0 || index >= len(v.tokens) {
				return nil, fmt.Errorf("%w: unknown token rune %U", ErrDiffFailed, r)
			}
			value.WriteString(v.tokens[index])
		}
		if value.Len() == 0 {
			continue
		}

		kind := Retained
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			kind = Removed
		case diffmatchpatch.DiffInsert:
			kind = Added
		}

		// Adjacent runs of one kind are merged so each token is maximal.
		if last := len(tokens) - 1; last >= 0 && tokens[last].Kind == kind {
			tokens[last].Value += value.String()
			continue
		}
		tokens = append(tokens, Token{Value: value.String(), Kind: kind})
	}
	return tokens, nil
}

func indexToRune(index int) rune {
	r := rune(index)
	if r >= surrogateStart {
		r += surrogateSize
	}
	return r
}

func runeToIndex(r rune) int {
	if r >= surrogateStart+surrogateSize {
		return int(r - surrogateSize)
	}
	if r >= surrogateStart {
		return -1
	}
	return int(r)
}

// SourceText reconstructs the source side of a script from its Retained and
// Removed tokens.
func SourceText(tokens []Token) string {
	return joinTokens(tokens, Added)
}

// FinalText reconstructs the final side of a script from its Retained and
// Added tokens.
func FinalText(tokens []Token) string {
	return joinTokens(tokens, Removed)
}

func joinTokens(tokens []Token, skip Kind) string {
	var sb strings.Builder
	for _, token := range tokens {
		if token.Kind != skip {
			sb.WriteString(token.Value)
		}
	}
	return sb.String()
}

// ChangeCount returns the number of Removed and Added tokens in a script.
func ChangeCount(tokens []Token) int {
	count := 0
	for _, token := range tokens {
		if token.Kind != Retained {
			count++
		}
	}
	return count
}
