package domain

import (
	"fmt"
	"time"
)

// Category classifies the result of processing one candidate.
type Category string

// Outcome categories. The string values appear in the outcome log and the
// report file names, so they must stay stable across releases.
const (
	CategoryIngestedAndAttached  Category = "successfully_ingested_and_attached"
	CategoryIngestedMetadataOnly Category = "successfully_ingested_metadata_only"
	CategoryAttached             Category = "successfully_attached"
	CategorySkippedAttachment    Category = "skipped_file_attachment"
	CategorySkipped              Category = "skipped"
	CategorySkippedAffiliation   Category = "skipped_non_unc_affiliation"
	CategoryFailed               Category = "failed"
)

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{
		CategoryIngestedAndAttached,
		CategoryIngestedMetadataOnly,
		CategoryAttached,
		CategorySkippedAttachment,
		CategorySkipped,
		CategorySkippedAffiliation,
		CategoryFailed,
	}
}

// IsValid checks if the category is a known value.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// IsSuccess reports whether the category represents a write to the repository.
func (c Category) IsSuccess() bool {
	switch c {
	case CategoryIngestedAndAttached, CategoryIngestedMetadataOnly, CategoryAttached:
		return true
	default:
		return false
	}
}

// Outcome is the append-only record of how one candidate was processed.
type Outcome struct {
	IDs       CandidateIDs `json:"ids"`
	Timestamp time.Time    `json:"timestamp"`
	Category  Category     `json:"category"`
	Message   string       `json:"message,omitempty"`
	FileName  string       `json:"file_name,omitempty"`
	WorkID    string       `json:"work_id,omitempty"`
}

// Key returns the deduplication key of the outcome's identifier set.
func (o Outcome) Key() string {
	return o.IDs.Key()
}

// NewOutcome creates an outcome stamped with the current UTC time.
func NewOutcome(ids CandidateIDs, category Category, message string) Outcome {
	return Outcome{
		IDs:       ids,
		Timestamp: time.Now().UTC(),
		Category:  category,
		Message:   message,
	}
}

// Failed creates a failed outcome from an error, prefixed with the stage that raised it.
func Failed(ids CandidateIDs, stage string, err error) Outcome {
	return NewOutcome(ids, CategoryFailed, fmt.Sprintf("%s: %v", stage, err))
}

// WithWork returns a copy of the outcome carrying the work id.
func (o Outcome) WithWork(workID string) Outcome {
	o.WorkID = workID
	return o
}

// WithFile returns a copy of the outcome carrying the attached file name.
func (o Outcome) WithFile(name string) Outcome {
	o.FileName = name
	return o
}
