package records

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParsePhrases_BracketedString(t *testing.T) {
	got := ParsePhrases("['Agreed on funding', 'Agreed on timeline']")
	want := []string{"Agreed on funding", "Agreed on timeline"}
	assertPhrases(t, got, want)
}

func TestParsePhrases_Variants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"empty brackets", "[]", nil},
		{"double quotes", `["House recedes", "Senate recedes"]`, []string{"House recedes", "Senate recedes"}},
		{"unquoted", "[House recedes, Senate recedes]", []string{"House recedes", "Senate recedes"}},
		{"no brackets", "House recedes", []string{"House recedes"}},
		{"comma inside quotes", "['Agreed, with amendment', 'Dropped']", []string{"Agreed, with amendment", "Dropped"}},
		{"apostrophe in unquoted", "[Senate's version adopted]", []string{"Senate's version adopted"}},
		{"empty entries removed", "['', 'Kept',  , '  ']", []string{"Kept"}},
		{"escaped quote", `['Conferees\'s text']`, []string{"Conferees's text"}},
		{"order preserved", "['c', 'a', 'b']", []string{"c", "a", "b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertPhrases(t, ParsePhrases(tc.input), tc.want)
		})
	}
}

func TestPhrases_JSONForms(t *testing.T) {
	var fromList, fromString, fromNull Phrases
	if err := json.Unmarshal([]byte(`["Agreed on funding", "", "Agreed on timeline"]`), &fromList); err != nil {
		t.Fatalf("Unmarshal(list) error = %v", err)
	}
	if err := json.Unmarshal([]byte(`"['Agreed on funding', 'Agreed on timeline']"`), &fromString); err != nil {
		t.Fatalf("Unmarshal(string) error = %v", err)
	}
	if err := json.Unmarshal([]byte(`null`), &fromNull); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}

	want := []string{"Agreed on funding", "Agreed on timeline"}
	assertPhrases(t, fromList, want)
	assertPhrases(t, fromString, want)
	assertPhrases(t, fromNull, nil)
}

func TestPhrases_YAMLForms(t *testing.T) {
	var holder struct {
		List   Phrases `yaml:"list"`
		Scalar Phrases `yaml:"scalar"`
	}
	input := `
list:
  - Agreed on funding
  - Agreed on timeline
scalar: "['Agreed on funding', 'Agreed on timeline']"
`
	if err := yaml.Unmarshal([]byte(input), &holder); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	want := []string{"Agreed on funding", "Agreed on timeline"}
	assertPhrases(t, holder.List, want)
	assertPhrases(t, holder.Scalar, want)
}

func TestMerge(t *testing.T) {
	merged := Merge(Phrases{"a", "b"}, Phrases{"b", "c"}, nil, Phrases{"a", "d"})
	assertPhrases(t, merged, []string{"a", "b", "c", "d"})
}

func TestRecord_UnmarshalJSON_Tolerant(t *testing.T) {
	input := `{
		"header": "Sec 101",
		"referencedSectionNumber": 101,
		"sourceBillType": "HOUSE_RDS",
		"sourceFullSectionText": null,
		"finalEnrolledText": 42,
		"jointExplanatoryText": "The conferees agree.",
		"agreementPhrases": "['Agreed on funding']",
		"wordCount": 350,
		"referenceComplexity": "high"
	}`

	var record Record
	if err := json.Unmarshal([]byte(input), &record); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if record.Header != "Sec 101" {
		t.Errorf("Header = %q", record.Header)
	}
	if record.ReferencedSectionNumber != "101" {
		t.Errorf("ReferencedSectionNumber = %q, want %q", record.ReferencedSectionNumber, "101")
	}
	if record.SourceFullSectionText != "" {
		t.Errorf("SourceFullSectionText = %q, want empty for null", record.SourceFullSectionText)
	}
	if record.FinalEnrolledText != "" {
		t.Errorf("FinalEnrolledText = %q, want empty for non-string", record.FinalEnrolledText)
	}
	assertPhrases(t, record.AgreementPhrases, []string{"Agreed on funding"})
	if record.Extra["wordCount"] != "350" {
		t.Errorf("Extra[wordCount] = %q, want %q", record.Extra["wordCount"], "350")
	}
	if record.Extra["referenceComplexity"] != "high" {
		t.Errorf("Extra[referenceComplexity] = %q", record.Extra["referenceComplexity"])
	}
}

func TestRecord_ColumnNameVariants(t *testing.T) {
	record := FromFields(map[string]any{
		"Header":                    "Sec 7",
		"Referenced Section Number": "7",
		"source_bill_type":          "SENATE_RS",
		"Final Enrolled Text":       "Final.",
	})
	if record.Header != "Sec 7" || record.ReferencedSectionNumber != "7" ||
		record.SourceBillType != "SENATE_RS" || record.FinalEnrolledText != "Final." {
		t.Errorf("FromFields() = %+v", record)
	}
	if len(record.Extra) != 0 {
		t.Errorf("Extra = %v, want no unknown columns", record.Extra)
	}
}

func TestReadJSON_ArrayAndWrapped(t *testing.T) {
	array := `[{"header": "Sec 1"}, {"header": "Sec 2"}]`
	wrapped := `{"records": [{"header": "Sec 1"}, {"header": "Sec 2"}]}`

	for name, input := range map[string]string{"array": array, "wrapped": wrapped} {
		loaded, err := ReadJSON(strings.NewReader(input))
		if err != nil {
			t.Fatalf("%s: ReadJSON() error = %v", name, err)
		}
		if len(loaded) != 2 || loaded[1].Header != "Sec 2" {
			t.Errorf("%s: ReadJSON() = %+v", name, loaded)
		}
	}

	empty, err := ReadJSON(strings.NewReader("  "))
	if err != nil || len(empty) != 0 {
		t.Errorf("ReadJSON(blank) = %v, %v", empty, err)
	}
}

func TestReadCSV(t *testing.T) {
	input := "header,referencedSectionNumber,sourceBillType,sourceFullSectionText,agreementPhrases,wordCount\n" +
		"Sec 101,101,HOUSE_RDS,\"The Secretary shall act.\",\"['Agreed on funding', 'Agreed on timeline']\",5\n" +
		",,,,,\n" +
		"Sec 99,99\n"

	loaded, err := ReadCSV(strings.NewReader(input), ',')
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("ReadCSV() returned %d records, want 2", len(loaded))
	}

	first := loaded[0]
	if first.SourceFullSectionText != "The Secretary shall act." {
		t.Errorf("SourceFullSectionText = %q", first.SourceFullSectionText)
	}
	assertPhrases(t, first.AgreementPhrases, []string{"Agreed on funding", "Agreed on timeline"})
	if first.Extra["wordCount"] != "5" {
		t.Errorf("Extra[wordCount] = %q", first.Extra["wordCount"])
	}

	second := loaded[1]
	if second.Header != "Sec 99" || second.ReferencedSectionNumber != "99" || second.SourceBillType != "" {
		t.Errorf("short row = %+v", second)
	}
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "records.yaml")
	yamlContent := `
- header: Sec 101
  referencedSectionNumber: 101
  sourceBillType: HOUSE_RDS
  agreementPhrases:
    - Agreed on funding
- header: Sec 99
  referencedSectionNumber: "99"
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loaded, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load() returned %d records, want 2", len(loaded))
	}
	if loaded[0].ReferencedSectionNumber != "101" {
		t.Errorf("ReferencedSectionNumber = %q, want %q", loaded[0].ReferencedSectionNumber, "101")
	}
	assertPhrases(t, loaded[0].AgreementPhrases, []string{"Agreed on funding"})

	if _, err := Load(filepath.Join(dir, "records.xlsx")); err == nil {
		t.Error("Load() of a missing file should fail")
	}

	unsupported := filepath.Join(dir, "records.txt")
	if err := os.WriteFile(unsupported, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(unsupported); err == nil {
		t.Error("Load() of an unsupported extension should fail")
	}
}

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		billType string
		position int
		want     string
	}{
		{BillTypeHouseRDS, 1, "House"},
		{BillTypeSenateRS, 2, "Senate"},
		{"house_eh", 1, "House"},
		{"CONFERENCE", 3, "CONFERENCE"},
		{"", 4, "Version 4"},
	}
	for _, tc := range tests {
		if got := SourceLabel(tc.billType, tc.position); got != tc.want {
			t.Errorf("SourceLabel(%q, %d) = %q, want %q", tc.billType, tc.position, got, tc.want)
		}
	}
}

func assertPhrases(t *testing.T, got Phrases, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("phrases = %q, want %q", []string(got), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("phrase %d = %q, want %q", i, got[i], want[i])
		}
	}
}
