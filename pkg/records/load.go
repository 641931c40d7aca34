package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads records from a dataset file, choosing the format by extension:
// .json, .yaml/.yml, .csv or .tsv.
func Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer file.Close()

	var loaded []Record
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".json":
		loaded, err = ReadJSON(file)
	case ".yaml", ".yml":
		loaded, err = ReadYAML(file)
	case ".csv":
		loaded, err = ReadCSV(file, ',')
	case ".tsv":
		loaded, err = ReadCSV(file, '\t')
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", extension)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return loaded, nil
}

// dataset is the wrapped document form {"records": [...]}.
type dataset struct {
	Records []Record `json:"records" yaml:"records"`
}

// ReadJSON reads either a top-level array of records or an object with a
// "records" array.
func ReadJSON(reader io.Reader) ([]Record, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []Record{}, nil
	}

	if trimmed[0] == '[' {
		var loaded []Record
		if err := json.Unmarshal(trimmed, &loaded); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return loaded, nil
	}

	var wrapped dataset
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if wrapped.Records == nil {
		return []Record{}, nil
	}
	return wrapped.Records, nil
}

// ReadYAML reads either a top-level sequence of records or a mapping with a
// "records" sequence.
func ReadYAML(reader io.Reader) ([]Record, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(reader).Decode(&root); err != nil {
		if err == io.EOF {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	document := &root
	if document.Kind == yaml.DocumentNode && len(document.Content) > 0 {
		document = document.Content[0]
	}

	var loaded []Record
	if document.Kind == yaml.SequenceNode {
		if err := document.Decode(&loaded); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	} else {
		var wrapped dataset
		if err := document.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		loaded = wrapped.Records
	}
	if loaded == nil {
		return []Record{}, nil
	}
	return loaded, nil
}

// ReadCSV reads delimited rows whose first row names the columns. Short rows
// leave the missing columns empty.
func ReadCSV(reader io.Reader, delimiter rune) ([]Record, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}

	// First row is headers.
	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	loaded := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		fields := make(map[string]any, len(headers))
		for columnIndex, columnName := range headers {
			if columnIndex < len(row) {
				fields[columnName] = row[columnIndex]
			}
		}
		loaded = append(loaded, FromFields(fields))
	}
	return loaded, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
