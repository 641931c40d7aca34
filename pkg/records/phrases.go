package records

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Phrases is the canonical in-memory form of agreement phrases: an ordered
// list with no empty entries. Input may be a list of strings or a single
// bracketed, comma separated string such as "['Agreed on funding', 'Agreed
// on timeline']"; both decode to the same Phrases.
type Phrases []string

// NewPhrases trims each entry and drops empty ones, preserving order.
func NewPhrases(items []string) Phrases {
	phrases := Phrases{}
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			phrases = append(phrases, trimmed)
		}
	}
	return phrases
}

// ParsePhrases splits a delimited phrase list. Surrounding brackets are
// optional, entries may be single or double quoted, and commas inside a
// quoted entry do not split it.
func ParsePhrases(raw string) Phrases {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		trimmed = trimmed[1 : len(trimmed)-1]
	}

	runes := []rune(trimmed)
	phrases := Phrases{}
	position := 0
	for position < len(runes) {
		for position < len(runes) && unicode.IsSpace(runes[position]) {
			position++
		}
		if position >= len(runes) {
			break
		}

		var item strings.Builder
		if quote := runes[position]; quote == '\'' || quote == '"' {
			position++
			for position < len(runes) {
				current := runes[position]
				if current == '\\' && position+1 < len(runes) {
					item.WriteRune(runes[position+1])
					position += 2
					continue
				}
				if current == quote && quoteCloses(runes, position+1) {
					position++
					break
				}
				item.WriteRune(current)
				position++
			}
			for position < len(runes) && runes[position] != ',' {
				position++
			}
		} else {
			for position < len(runes) && runes[position] != ',' {
				item.WriteRune(runes[position])
				position++
			}
		}
		// Step past the separating comma.
		position++

		if text := strings.TrimSpace(item.String()); text != "" {
			phrases = append(phrases, text)
		}
	}
	return phrases
}

// quoteCloses reports whether a quote ending at from-1 is followed only by
// whitespace up to the next comma or the end of input.
func quoteCloses(runes []rune, from int) bool {
	for index := from; index < len(runes); index++ {
		if runes[index] == ',' {
			return true
		}
		if !unicode.IsSpace(runes[index]) {
			return false
		}
	}
	return true
}

// phrasesFromValue converts a decoded JSON or YAML value into Phrases.
func phrasesFromValue(value any) Phrases {
	switch typed := value.(type) {
	case nil:
		return Phrases{}
	case string:
		return ParsePhrases(typed)
	case []string:
		return NewPhrases(typed)
	case []any:
		items := make([]string, 0, len(typed))
		for _, element := range typed {
			if text, ok := element.(string); ok {
				items = append(items, text)
			}
		}
		return NewPhrases(items)
	default:
		return Phrases{}
	}
}

// UnmarshalJSON accepts a JSON array of strings, a delimited string, or null.
func (phrases *Phrases) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("decoding agreement phrases: %w", err)
	}
	*phrases = phrasesFromValue(value)
	return nil
}

// UnmarshalYAML accepts a YAML sequence of strings or a delimited scalar.
func (phrases *Phrases) UnmarshalYAML(node *yaml.Node) error {
	var value any
	if err := node.Decode(&value); err != nil {
		return fmt.Errorf("decoding agreement phrases: %w", err)
	}
	*phrases = phrasesFromValue(value)
	return nil
}

// Merge returns the ordered union of several phrase lists, keeping the first
// occurrence of each phrase.
func Merge(lists ...Phrases) Phrases {
	seen := make(map[string]bool)
	merged := Phrases{}
	for _, list := range lists {
		for _, phrase := range list {
			if !seen[phrase] {
				seen[phrase] = true
				merged = append(merged, phrase)
			}
		}
	}
	return merged
}
