package bug

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MsgTitleRequired       = "Title is required"
	MsgDescriptionRequired = "Description is required"
	MsgReporterRequired    = "Reporter name is required"
)

var (
	MsgTitleTooLong    = fmt.Sprintf("Title cannot exceed %d characters", MaxTitleLength)
	MsgInvalidStatus   = "Status must be one of: " + joinValues(Statuses)
	MsgInvalidSeverity = "Severity must be one of: " + joinValues(Severities)
)

// Validate reports every required field that is missing or blank, in the
// order title, description, reportedBy. An empty result means the payload is
// acceptable. Status and severity are not inspected here.
func Validate(in Input) []string {
	errs := []string{}
	if blank(in.Title) {
		errs = append(errs, MsgTitleRequired)
	}
	if blank(in.Description) {
		errs = append(errs, MsgDescriptionRequired)
	}
	if blank(in.ReportedBy) {
		errs = append(errs, MsgReporterRequired)
	}
	return errs
}

// CheckConstraints enforces the stored-document constraints: title length and
// enum membership of any supplied status or severity. It is the same rule set
// the stores apply, run ahead of persistence so both paths report alike.
func CheckConstraints(in Input) []string {
	errs := []string{}
	if utf8.RuneCountInString(trim(in.Title)) > MaxTitleLength {
		errs = append(errs, MsgTitleTooLong)
	}
	if in.Status != nil && !in.Status.Valid() {
		errs = append(errs, MsgInvalidStatus)
	}
	if in.Severity != nil && !in.Severity.Valid() {
		errs = append(errs, MsgInvalidSeverity)
	}
	return errs
}

// Normalize trims the free-text fields the way they are persisted.
func Normalize(in Input) Input {
	in.Title = trim(in.Title)
	in.Description = trim(in.Description)
	in.ReportedBy = trim(in.ReportedBy)
	return in
}

// NewFromInput builds an unsaved Bug from a normalized payload, applying the
// status and severity defaults.
func NewFromInput(in Input) *Bug {
	b := &Bug{
		Title:       in.Title,
		Description: in.Description,
		ReportedBy:  in.ReportedBy,
		Status:      DefaultStatus,
		Severity:    DefaultSeverity,
	}
	if in.Status != nil {
		b.Status = *in.Status
	}
	if in.Severity != nil {
		b.Severity = *in.Severity
	}
	return b
}

// InputOf returns the payload that would reproduce b's user-editable fields.
func InputOf(b *Bug) Input {
	st, sev := b.Status, b.Severity
	return Input{
		Title:       b.Title,
		Description: b.Description,
		ReportedBy:  b.ReportedBy,
		Status:      &st,
		Severity:    &sev,
	}
}

func blank(s string) bool {
	return trim(s) == ""
}

// trim strips surrounding white space and byte order marks, which browsers
// treat as blank too.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
