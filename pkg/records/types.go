// Package records defines the bill-reference rows the redlining engine reads
// and the boundary parsing that turns loosely shaped tabular input into
// them. Text fields that are missing, null or not strings load as empty
// strings; agreement phrases load from either a list or a bracketed string.
package records

import (
	"fmt"
	"strings"
)

// Well-known source bill types. Other values are carried through as-is.
const (
	BillTypeHouseRDS  = "HOUSE_RDS"
	BillTypeSenateRS  = "SENATE_RS"
	housePrefix       = "HOUSE"
	senatePrefix      = "SENATE"
	defaultVersionTag = "Version"
)

// Record is one row of source data describing a single version of one
// legislative section. Records are read-only once loaded.
type Record struct {
	// Header is the section title and the grouping key.
	Header string `json:"header" yaml:"header"`

	// ReferencedSectionNumber orders groups. Numeric input is carried as
	// its decimal string.
	ReferencedSectionNumber string `json:"referencedSectionNumber" yaml:"referencedSectionNumber"`

	// SourceBillType labels the version, e.g. HOUSE_RDS or SENATE_RS.
	SourceBillType string `json:"sourceBillType" yaml:"sourceBillType"`

	// SourceFullSectionText is the raw text of this version.
	SourceFullSectionText string `json:"sourceFullSectionText" yaml:"sourceFullSectionText"`

	// FinalEnrolledText is the converged text, empty when absent.
	FinalEnrolledText string `json:"finalEnrolledText" yaml:"finalEnrolledText"`

	// JointExplanatoryText is advisory commentary from the conference.
	JointExplanatoryText string `json:"jointExplanatoryText" yaml:"jointExplanatoryText"`

	// AgreementPhrases annotate how diverging versions were resolved.
	AgreementPhrases Phrases `json:"agreementPhrases" yaml:"agreementPhrases"`

	// Extra holds auxiliary columns (wordCount, referenceComplexity, ...)
	// that the engine passes through without interpreting.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// String returns a short display form: "101 Sec 101 [HOUSE_RDS]".
func (record Record) String() string {
	var sb strings.Builder
	if record.ReferencedSectionNumber != "" {
		sb.WriteString(record.ReferencedSectionNumber)
		sb.WriteString(" ")
	}
	sb.WriteString(record.Header)
	if record.SourceBillType != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", record.SourceBillType))
	}
	return sb.String()
}

// SourceLabel returns the panel label for a bill type. House and Senate
// types collapse to the chamber name; other non-empty types are returned
// unchanged; an empty type becomes "Version N" using the 1-based position.
func SourceLabel(billType string, position int) string {
	trimmed := strings.TrimSpace(billType)
	upper := strings.ToUpper(trimmed)
	switch {
	case strings.HasPrefix(upper, housePrefix):
		return "House"
	case strings.HasPrefix(upper, senatePrefix):
		return "Senate"
	case trimmed != "":
		return trimmed
	default:
		return fmt.Sprintf("%s %d", defaultVersionTag, position)
	}
}
