package migration

import (
	"fmt"
	"time"

	apperr "github.com/memoraapp/memora/internal/errors"
)

// MigratedItems counts successfully imported records per group. Categories,
// collection details and likes are imported but not counted.
type MigratedItems struct {
	Users              int `json:"users"`
	Collections        int `json:"collections"`
	Posts              int `json:"posts"`
	Comments           int `json:"comments"`
	KnowledgeDocuments int `json:"knowledgeDocuments"`
	Attachments        int `json:"attachments"`
}

// RecordError identifies one record that failed to import.
type RecordError struct {
	Group string `json:"group"`
	Key   string `json:"key"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

// Result reports the outcome of a migration. Success is false only when
// the migration could not run at all; per-record failures leave it true.
//
// Errors lists every per-record failure and every notice as text, in the
// order they happened. Notices and Failures hold the same entries split by
// kind.
type Result struct {
	Success       bool          `json:"success"`
	Direction     string        `json:"direction,omitempty"`
	MigratedItems MigratedItems `json:"migratedItems"`
	Errors        []string      `json:"errors"`
	Notices       []string      `json:"notices"`
	Failures      []RecordError `json:"failures"`
	Duration      time.Duration `json:"duration"`
}

func newResult() *Result {
	return &Result{
		Success:  true,
		Errors:   []string{},
		Notices:  []string{},
		Failures: []RecordError{},
	}
}

// fail marks the whole migration as failed.
func (r *Result) fail(err error) *Result {
	r.Success = false
	r.Errors = append(r.Errors, err.Error())
	return r
}

func (r *Result) recordFailure(group, key string, err error) {
	r.Failures = append(r.Failures, RecordError{
		Group: group,
		Key:   key,
		Code:  string(apperr.CodeOf(err)),
		Error: err.Error(),
	})
	r.Errors = append(r.Errors, fmt.Sprintf("%s %q: %v", group, key, err))
}

func (r *Result) notice(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Notices = append(r.Notices, msg)
	r.Errors = append(r.Errors, msg)
}
