package numbering

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
)

const (
	// SettingsCollection and SettingsDocID locate the per-tenant settings document
	SettingsCollection = "settings"
	SettingsDocID      = "general"

	// FirstNumber is the counter value a fresh series starts at
	FirstNumber int64 = 1
)

// SequenceSettings is the per-tenant record of number templates and next counter values.
// NextNumbers only moves forward, except through an explicit Reset.
type SequenceSettings struct {
	NumberFormats map[DocumentType]string `json:"numberFormats"`
	NextNumbers   map[DocumentType]int64  `json:"nextNumbers"`
	UpdatedAt     time.Time               `json:"updatedAt"`
	UpdatedBy     string                  `json:"updatedBy"`
}

// NewDefaultSettings creates settings holding the default templates and counter 1 for every type
func NewDefaultSettings(actorID string, now time.Time) *SequenceSettings {
	next := make(map[DocumentType]int64, len(defaultFormats))
	for _, t := range AllDocumentTypes() {
		next[t] = FirstNumber
	}
	return &SequenceSettings{
		NumberFormats: DefaultFormats(),
		NextNumbers:   next,
		UpdatedAt:     now,
		UpdatedBy:     actorID,
	}
}

// FormatFor returns the template for t, falling back to the default
func (s *SequenceSettings) FormatFor(t DocumentType) string {
	if f, ok := s.NumberFormats[t]; ok && f != "" {
		return f
	}
	return t.DefaultFormat()
}

// NextFor returns the next counter value for t. Missing or non-positive values read as 1.
func (s *SequenceSettings) NextFor(t DocumentType) int64 {
	if n := s.NextNumbers[t]; n >= FirstNumber {
		return n
	}
	return FirstNumber
}

// Peek renders the number the next Issue call would produce without changing state
func (s *SequenceSettings) Peek(t DocumentType, at time.Time) string {
	return FormatNumber(s.FormatFor(t), s.NextFor(t), at)
}

// Issue renders the next number for t and advances its counter by one
func (s *SequenceSettings) Issue(t DocumentType, actorID string, at time.Time) string {
	n := s.NextFor(t)
	number := FormatNumber(s.FormatFor(t), n, at)
	if s.NextNumbers == nil {
		s.NextNumbers = make(map[DocumentType]int64)
	}
	s.NextNumbers[t] = n + 1
	s.touch(actorID, at)
	return number
}

// SetFormat replaces the template for t. The counter is left untouched.
func (s *SequenceSettings) SetFormat(t DocumentType, template, actorID string, at time.Time) error {
	if err := ValidateTemplate(template); err != nil {
		return err
	}
	if s.NumberFormats == nil {
		s.NumberFormats = make(map[DocumentType]string)
	}
	s.NumberFormats[t] = template
	s.touch(actorID, at)
	return nil
}

// Reset moves the counter for t to start. Resetting below an issued value
// makes the series hand out duplicates.
func (s *SequenceSettings) Reset(t DocumentType, start int64, actorID string, at time.Time) error {
	if start < FirstNumber {
		return shared.NewDomainError(shared.CodeInvalidInput, "Counter start must be at least 1")
	}
	if s.NextNumbers == nil {
		s.NextNumbers = make(map[DocumentType]int64)
	}
	s.NextNumbers[t] = start
	s.touch(actorID, at)
	return nil
}

func (s *SequenceSettings) touch(actorID string, at time.Time) {
	s.UpdatedAt = at
	s.UpdatedBy = actorID
}
