package domain

import "time"

// Timestamps holds creation and modification times shared by most records.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps fills zero timestamps with now. Times carried over from a
// migration source are kept as-is.
func (t *Timestamps) InitTimestamps(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
}

// Touch sets UpdatedAt to now.
func (t *Timestamps) Touch() {
	t.UpdatedAt = time.Now()
}
