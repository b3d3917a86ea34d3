package model

import "time"

// Analysis holds the three independent outputs the analyzer produces for
// one message.
type Analysis struct {
	// ID is the internal unique identifier for this analysis row.
	ID string `json:"id" db:"id"`

	// MessageID references the analyzed message.
	MessageID string `json:"message_id" db:"message_id"`

	// Summary is a short free-form summary of the message.
	Summary string `json:"summary" db:"summary"`

	// Category is a single classification label.
	Category string `json:"category" db:"category"`

	// Extracted is the key-facts string (dates, amounts, action items).
	Extracted string `json:"extracted" db:"extracted"`

	// Model records which model produced this analysis.
	Model string `json:"model" db:"model"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
