package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// field identifies a known Record column.
type field int

const (
	fieldUnknown field = iota
	fieldHeader
	fieldSectionNumber
	fieldBillType
	fieldSourceText
	fieldFinalText
	fieldExplanatoryText
	fieldAgreementPhrases
	fieldExtra
)

// fieldsByCanonicalName maps column names, lower-cased with punctuation and
// spaces removed, to Record fields. "Referenced Section Number",
// "referenced_section_number" and "referencedSectionNumber" all match.
var fieldsByCanonicalName = map[string]field{
	"header":                  fieldHeader,
	"referencedsectionnumber": fieldSectionNumber,
	"sourcebilltype":          fieldBillType,
	"sourcefullsectiontext":   fieldSourceText,
	"finalenrolledtext":       fieldFinalText,
	"jointexplanatorytext":    fieldExplanatoryText,
	"agreementphrases":        fieldAgreementPhrases,
	"extra":                   fieldExtra,
}

func canonicalName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// FromFields builds a Record from loosely typed column values. Text fields
// that are missing or not strings become empty; unknown columns are kept in
// Extra.
func FromFields(fields map[string]any) Record {
	record := Record{AgreementPhrases: Phrases{}}
	for name, value := range fields {
		switch fieldsByCanonicalName[canonicalName(name)] {
		case fieldHeader:
			record.Header = textValue(value)
		case fieldSectionNumber:
			record.ReferencedSectionNumber = strings.TrimSpace(scalarValue(value))
		case fieldBillType:
			record.SourceBillType = strings.TrimSpace(textValue(value))
		case fieldSourceText:
			record.SourceFullSectionText = textValue(value)
		case fieldFinalText:
			record.FinalEnrolledText = textValue(value)
		case fieldExplanatoryText:
			record.JointExplanatoryText = textValue(value)
		case fieldAgreementPhrases:
			record.AgreementPhrases = phrasesFromValue(value)
		case fieldExtra:
			if nested, ok := value.(map[string]any); ok {
				for key, nestedValue := range nested {
					record.setExtra(key, nestedValue)
				}
			}
		default:
			record.setExtra(name, value)
		}
	}
	return record
}

func (record *Record) setExtra(name string, value any) {
	if value == nil {
		return
	}
	if record.Extra == nil {
		record.Extra = make(map[string]string)
	}
	record.Extra[name] = scalarValue(value)
}

// textValue returns value when it is a string and "" otherwise.
func textValue(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	return ""
}

// scalarValue renders strings, numbers and booleans as strings. Whole
// floating point numbers print without a fraction so 101.0 becomes "101".
func scalarValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1e15 {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(data)
	}
}

// UnmarshalJSON decodes a Record from a flat JSON object, tolerating null and
// wrongly typed fields.
func (record *Record) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	*record = FromFields(fields)
	return nil
}

// UnmarshalYAML decodes a Record from a YAML mapping with the same tolerance
// as UnmarshalJSON.
func (record *Record) UnmarshalYAML(node *yaml.Node) error {
	var fields map[string]any
	if err := node.Decode(&fields); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	*record = FromFields(fields)
	return nil
}
