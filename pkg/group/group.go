// Package group clusters flat bill-reference records into sections: every
// record sharing a header lands in the same Group, so competing House and
// Senate versions of one section can be diffed together.
package group

import (
	"sort"
	"strconv"
	"strings"

	"github.com/coolbeans/redline/pkg/records"
)

// Group is the set of records sharing one section header. Groups are derived
// views over one input snapshot and are never mutated after Records returns.
type Group struct {
	// Key is the shared header.
	Key string `json:"key"`

	// Rows are the member records in input order.
	Rows []records.Record `json:"rows"`

	// SectionNumbers lists the distinct referenced section numbers seen,
	// in first-seen order. An absent number is recorded as "".
	SectionNumbers []string `json:"sectionNumbers"`

	// RepresentativeSectionNumber is the first row's section number. It is
	// used only to order groups.
	RepresentativeSectionNumber string `json:"representativeSectionNumber"`
}

// HasVersions reports whether the group holds more than one version row.
func (g Group) HasVersions() bool {
	return len(g.Rows) > 1
}

// Records partitions recs into groups keyed by exact header equality and
// orders them ascending by representative section number read as an
// integer. Groups whose representative is absent or not numeric sort after
// every numeric group; ties keep insertion order.
func Records(recs []records.Record) []Group {
	groups := make([]Group, 0)
	indexByKey := make(map[string]int)
	seenNumbers := make([]map[string]bool, 0)

	for _, record := range recs {
		groupIndex, exists := indexByKey[record.Header]
		if !exists {
			groupIndex = len(groups)
			indexByKey[record.Header] = groupIndex
			groups = append(groups, Group{
				Key:                         record.Header,
				Rows:                        []records.Record{},
				SectionNumbers:              []string{},
				RepresentativeSectionNumber: record.ReferencedSectionNumber,
			})
			seenNumbers = append(seenNumbers, make(map[string]bool))
		}

		current := &groups[groupIndex]
		current.Rows = append(current.Rows, record)
		if number := record.ReferencedSectionNumber; !seenNumbers[groupIndex][number] {
			seenNumbers[groupIndex][number] = true
			current.SectionNumbers = append(current.SectionNumbers, number)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		leftNumber, leftNumeric := SectionOrdinal(groups[i].RepresentativeSectionNumber)
		rightNumber, rightNumeric := SectionOrdinal(groups[j].RepresentativeSectionNumber)
		if leftNumeric != rightNumeric {
			return leftNumeric
		}
		if !leftNumeric {
			return false
		}
		return leftNumber < rightNumber
	})

	return groups
}

// SectionOrdinal reads the leading integer of a section number, so "132A"
// yields 132. It reports false when the value has no leading digits.
func SectionOrdinal(sectionNumber string) (int64, bool) {
	trimmed := strings.TrimSpace(sectionNumber)

	end := 0
	if end < len(trimmed) && (trimmed[end] == '-' || trimmed[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	value, err := strconv.ParseInt(trimmed[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Find returns the group with the given key.
func Find(groups []Group, key string) (Group, bool) {
	for _, candidate := range groups {
		if candidate.Key == key {
			return candidate, true
		}
	}
	return Group{}, false
}

// Stats summarizes a grouping for display.
type Stats struct {
	Groups          int `json:"groups"`
	Records         int `json:"records"`
	MultiVersion    int `json:"multiVersion"`
	WithFinalText   int `json:"withFinalText"`
	NonNumericOrder int `json:"nonNumericOrder"`
}

// Summarize computes Stats over groups.
func Summarize(groups []Group) Stats {
	stats := Stats{Groups: len(groups)}
	for _, g := range groups {
		stats.Records += len(g.Rows)
		if g.HasVersions() {
			stats.MultiVersion++
		}
		if FinalText(g) != "" {
			stats.WithFinalText++
		}
		if _, numeric := SectionOrdinal(g.RepresentativeSectionNumber); !numeric {
			stats.NonNumericOrder++
		}
	}
	return stats
}

// FinalText returns the first non-blank final enrolled text among the
// group's rows, in row order.
func FinalText(g Group) string {
	for _, row := range g.Rows {
		if strings.TrimSpace(row.FinalEnrolledText) != "" {
			return row.FinalEnrolledText
		}
	}
	return ""
}
