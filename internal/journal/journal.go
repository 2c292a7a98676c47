package journal

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the discriminant of a LogRecord.
type Kind string

const (
	KindFood    Kind = "food"
	KindStool   Kind = "stool"
	KindSymptom Kind = "symptom"
	KindNote    Kind = "note"
)

// Kinds lists every valid kind in display order.
var Kinds = []Kind{KindFood, KindStool, KindSymptom, KindNote}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown log kind %q (want food, stool, symptom or note)", s)
}

// Food is the payload of a food log.
type Food struct {
	Name        string `json:"name"`
	Quantity    string `json:"quantity,omitempty"`
	IsScavenged bool   `json:"is_scavenged"`
	IsSafe      bool   `json:"is_safe"`
}

// Stool is the payload of a stool log. QualityCode is 1 (very hard) to 5 (liquid).
type Stool struct {
	QualityCode int `json:"quality_code"`
}

// Symptom is the payload of a symptom log.
type Symptom struct {
	Descriptions []string `json:"descriptions"`
}

// Note is the payload of a free-text note.
type Note struct {
	Text string `json:"text"`
}

// LogRecord is a single journal entry. Exactly one payload is set and it
// matches Kind.
type LogRecord struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Food      *Food     `json:"food,omitempty"`
	Stool     *Stool    `json:"stool,omitempty"`
	Symptom   *Symptom  `json:"symptom,omitempty"`
	Note      *Note     `json:"note,omitempty"`
}

// Pet owns a journal.
type Pet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is an immutable view of a pet's logs at a given journal version.
type Snapshot struct {
	PetID   string
	Version int64
	Logs    []LogRecord
}

// NewFoodLog builds a food record.
func NewFoodLog(at time.Time, food Food) LogRecord {
	return LogRecord{Timestamp: at, Kind: KindFood, Food: &food}
}

// NewStoolLog builds a stool record.
func NewStoolLog(at time.Time, qualityCode int) LogRecord {
	return LogRecord{Timestamp: at, Kind: KindStool, Stool: &Stool{QualityCode: qualityCode}}
}

// NewSymptomLog builds a symptom record.
func NewSymptomLog(at time.Time, descriptions ...string) LogRecord {
	return LogRecord{Timestamp: at, Kind: KindSymptom, Symptom: &Symptom{Descriptions: descriptions}}
}

// NewNoteLog builds a note record.
func NewNoteLog(at time.Time, text string) LogRecord {
	return LogRecord{Timestamp: at, Kind: KindNote, Note: &Note{Text: text}}
}

// FoodKey is the identity of a food name. Names compare case-insensitively
// and otherwise exactly; surrounding space is stripped once when a record is
// stored (see Normalized).
func FoodKey(name string) string {
	return strings.ToLower(name)
}

// Normalized returns r with its food name trimmed. The payload is copied so
// the caller's record is left alone.
func (r LogRecord) Normalized() LogRecord {
	if r.Food != nil {
		f := *r.Food
		f.Name = strings.TrimSpace(f.Name)
		r.Food = &f
	}
	return r
}

// IsFood reports whether r is a food record carrying a payload.
func (r LogRecord) IsFood() bool {
	return r.Kind == KindFood && r.Food != nil
}

// IsScavengedFood reports whether r is a scavenged food record.
func (r LogRecord) IsScavengedFood() bool {
	return r.IsFood() && r.Food.IsScavenged
}

// ValidationError describes a record that violates the data model.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid log record: %s: %s", e.Field, e.Message)
}

// Validate checks that the payload matches the kind. The analysis engine
// tolerates invalid records; the store refuses to write them.
func (r LogRecord) Validate() error {
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "must be set"}
	}

	payloads := 0
	for _, set := range []bool{r.Food != nil, r.Stool != nil, r.Symptom != nil, r.Note != nil} {
		if set {
			payloads++
		}
	}
	if payloads != 1 {
		return &ValidationError{Field: "payload", Message: fmt.Sprintf("expected exactly one payload, got %d", payloads)}
	}

	switch r.Kind {
	case KindFood:
		if r.Food == nil {
			return &ValidationError{Field: "food", Message: "missing for food log"}
		}
		if strings.TrimSpace(r.Food.Name) == "" {
			return &ValidationError{Field: "food.name", Message: "must not be empty"}
		}
	case KindStool:
		if r.Stool == nil {
			return &ValidationError{Field: "stool", Message: "missing for stool log"}
		}
		if r.Stool.QualityCode < 1 || r.Stool.QualityCode > 5 {
			return &ValidationError{Field: "stool.quality_code", Message: fmt.Sprintf("must be 1-5, got %d", r.Stool.QualityCode)}
		}
	case KindSymptom:
		if r.Symptom == nil {
			return &ValidationError{Field: "symptom", Message: "missing for symptom log"}
		}
	case KindNote:
		if r.Note == nil {
			return &ValidationError{Field: "note", Message: "missing for note log"}
		}
	default:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", r.Kind)}
	}
	return nil
}

// Summary returns a one-line human description of the record.
func (r LogRecord) Summary() string {
	switch {
	case r.Kind == KindFood && r.Food != nil:
		s := r.Food.Name
		if r.Food.Quantity != "" {
			s += " (" + r.Food.Quantity + ")"
		}
		if r.Food.IsScavenged {
			s = "[SCAVENGED] " + s
		}
		if r.Food.IsSafe {
			s += " [safe]"
		}
		return s
	case r.Kind == KindStool && r.Stool != nil:
		return fmt.Sprintf("Stool type %d", r.Stool.QualityCode)
	case r.Kind == KindSymptom && r.Symptom != nil:
		return "Symptom: " + strings.Join(r.Symptom.Descriptions, ", ")
	case r.Kind == KindNote && r.Note != nil:
		return r.Note.Text
	}
	return string(r.Kind)
}
