package group

import (
	"fmt"
	"testing"

	"github.com/coolbeans/redline/pkg/records"
)

func TestRecords_HouseSenateScenario(t *testing.T) {
	input := []records.Record{
		{Header: "Sec 101", ReferencedSectionNumber: "101", SourceBillType: "HOUSE_RDS"},
		{Header: "Sec 101", ReferencedSectionNumber: "101", SourceBillType: "SENATE_RS"},
		{Header: "Sec 99", ReferencedSectionNumber: "99"},
	}

	groups := Records(input)
	if len(groups) != 2 {
		t.Fatalf("Records() returned %d groups, want 2", len(groups))
	}
	if groups[0].Key != "Sec 99" || groups[1].Key != "Sec 101" {
		t.Errorf("group order = [%s, %s], want [Sec 99, Sec 101]", groups[0].Key, groups[1].Key)
	}
	if len(groups[1].Rows) != 2 {
		t.Errorf("Sec 101 rows = %d, want 2", len(groups[1].Rows))
	}
	if !groups[1].HasVersions() || groups[0].HasVersions() {
		t.Error("HasVersions() mismatch")
	}
	if got := groups[1].Rows[1].SourceBillType; got != "SENATE_RS" {
		t.Errorf("row order not preserved, second row type = %q", got)
	}
}

func TestRecords_IsPartition(t *testing.T) {
	var input []records.Record
	for i := 0; i < 30; i++ {
		input = append(input, records.Record{
			Header:                  fmt.Sprintf("Sec %d", i%7),
			ReferencedSectionNumber: fmt.Sprintf("%d", 100-i%7),
			SourceFullSectionText:   fmt.Sprintf("row %d", i),
		})
	}

	groups := Records(input)

	seen := make(map[string]int)
	total := 0
	for _, g := range groups {
		for _, row := range g.Rows {
			if row.Header != g.Key {
				t.Errorf("row %q landed in group %q", row.Header, g.Key)
			}
			seen[row.SourceFullSectionText]++
			total++
		}
	}
	if total != len(input) {
		t.Errorf("groups hold %d rows, want %d", total, len(input))
	}
	for _, record := range input {
		if seen[record.SourceFullSectionText] != 1 {
			t.Errorf("record %q appears %d times", record.SourceFullSectionText, seen[record.SourceFullSectionText])
		}
	}

	for i := 1; i < len(groups); i++ {
		previous, _ := SectionOrdinal(groups[i-1].RepresentativeSectionNumber)
		current, _ := SectionOrdinal(groups[i].RepresentativeSectionNumber)
		if previous > current {
			t.Errorf("groups out of order at %d: %d > %d", i, previous, current)
		}
	}
}

func TestRecords_NonNumericLastAndStable(t *testing.T) {
	input := []records.Record{
		{Header: "Findings", ReferencedSectionNumber: ""},
		{Header: "Sec 12", ReferencedSectionNumber: "12"},
		{Header: "Purposes", ReferencedSectionNumber: "n/a"},
		{Header: "Sec 3", ReferencedSectionNumber: "3"},
		{Header: "Definitions"},
		{Header: "Sec 3A", ReferencedSectionNumber: "3A"},
	}

	groups := Records(input)
	want := []string{"Sec 3", "Sec 3A", "Sec 12", "Findings", "Purposes", "Definitions"}
	if len(groups) != len(want) {
		t.Fatalf("Records() returned %d groups, want %d", len(groups), len(want))
	}
	for i, key := range want {
		if groups[i].Key != key {
			t.Errorf("group %d = %q, want %q", i, groups[i].Key, key)
		}
	}
}

func TestRecords_RepresentativeFromFirstRow(t *testing.T) {
	input := []records.Record{
		{Header: "Sec 5", ReferencedSectionNumber: "5"},
		{Header: "Sec 5", ReferencedSectionNumber: "500"},
		{Header: "Sec 5", ReferencedSectionNumber: "5"},
		{Header: "Sec 7", ReferencedSectionNumber: "7"},
	}

	groups := Records(input)
	if groups[0].Key != "Sec 5" {
		t.Fatalf("first group = %q, want Sec 5", groups[0].Key)
	}
	if groups[0].RepresentativeSectionNumber != "5" {
		t.Errorf("RepresentativeSectionNumber = %q, want 5", groups[0].RepresentativeSectionNumber)
	}
	if len(groups[0].SectionNumbers) != 2 || groups[0].SectionNumbers[0] != "5" || groups[0].SectionNumbers[1] != "500" {
		t.Errorf("SectionNumbers = %v, want [5 500]", groups[0].SectionNumbers)
	}
}

func TestRecords_RecordsAbsentSectionNumber(t *testing.T) {
	groups := Records([]records.Record{
		{Header: "Findings", ReferencedSectionNumber: "3"},
		{Header: "Findings"},
		{Header: "Findings"},
	})

	want := []string{"3", ""}
	if len(groups) != 1 || len(groups[0].SectionNumbers) != len(want) {
		t.Fatalf("SectionNumbers = %q, want %q", groups[0].SectionNumbers, want)
	}
	for i := range want {
		if groups[0].SectionNumbers[i] != want[i] {
			t.Errorf("SectionNumbers[%d] = %q, want %q", i, groups[0].SectionNumbers[i], want[i])
		}
	}
}

func TestRecords_ExactHeaderEquality(t *testing.T) {
	groups := Records([]records.Record{
		{Header: "Sec 1", ReferencedSectionNumber: "1"},
		{Header: "Sec 1 ", ReferencedSectionNumber: "1"},
		{Header: "sec 1", ReferencedSectionNumber: "1"},
	})
	if len(groups) != 3 {
		t.Errorf("Records() returned %d groups, want 3 distinct headers", len(groups))
	}
}

func TestRecords_Empty(t *testing.T) {
	groups := Records(nil)
	if groups == nil || len(groups) != 0 {
		t.Errorf("Records(nil) = %v, want empty non-nil slice", groups)
	}
}

func TestSectionOrdinal(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		numeric bool
	}{
		{"101", 101, true},
		{" 42 ", 42, true},
		{"132A", 132, true},
		{"-3", -3, true},
		{"", 0, false},
		{"A12", 0, false},
		{"n/a", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range tests {
		got, numeric := SectionOrdinal(tc.input)
		if got != tc.want || numeric != tc.numeric {
			t.Errorf("SectionOrdinal(%q) = (%d, %v), want (%d, %v)", tc.input, got, numeric, tc.want, tc.numeric)
		}
	}
}

func TestFindAndSummarize(t *testing.T) {
	groups := Records([]records.Record{
		{Header: "Sec 1", ReferencedSectionNumber: "1", FinalEnrolledText: "  "},
		{Header: "Sec 1", ReferencedSectionNumber: "1", FinalEnrolledText: "Final text."},
		{Header: "Findings"},
	})

	found, ok := Find(groups, "Sec 1")
	if !ok || found.Key != "Sec 1" {
		t.Fatalf("Find(Sec 1) = %+v, %v", found, ok)
	}
	if FinalText(found) != "Final text." {
		t.Errorf("FinalText() = %q, want first non-blank", FinalText(found))
	}
	if _, ok := Find(groups, "Sec 2"); ok {
		t.Error("Find(Sec 2) should not find a group")
	}

	stats := Summarize(groups)
	want := Stats{Groups: 2, Records: 3, MultiVersion: 1, WithFinalText: 1, NonNumericOrder: 1}
	if stats != want {
		t.Errorf("Summarize() = %+v, want %+v", stats, want)
	}
}
