package models

import "time"

// Appointment is a one-off event sourced independently of the recurring
// catalog, merged into the schedule at composition time.
type Appointment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	StartMin  int       `json:"start_min"`
	EndMin    int       `json:"end_min"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	Completed bool      `json:"completed"`
	Cancelled bool      `json:"cancelled"`
	CreatedAt time.Time `json:"created_at"`
}
