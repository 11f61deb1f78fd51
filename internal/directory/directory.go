// Package directory is the boundary to the patient record system. Lookups
// and record creation are slow, may fail, and are safe for the caller to
// retry; outcomes are explicit values, never panics.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound reports that no patient matches the document id. Any other
// error from the Service is a collaborator failure.
var ErrNotFound = errors.New("directory: patient not found")

// Patient is a record in the patient directory.
type Patient struct {
	CaseID     string `json:"case_id"`
	DocumentID string `json:"document_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Appointment is a scheduled appointment for a patient.
type Appointment struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Doctor   string `json:"doctor"`
	Location string `json:"location"`
	Note     string `json:"note,omitempty"`
}

// ClinicalRecord is the payload for creating a new clinical history.
type ClinicalRecord struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	BirthDate  string `json:"birth_date"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Service is the patient-directory collaborator contract.
type Service interface {
	// LookupPatient returns the patient for a document id, ErrNotFound when
	// no record exists, or another error on collaborator failure.
	LookupPatient(ctx context.Context, documentID string) (*Patient, error)

	// LookupAppointments returns the patient's upcoming appointments.
	LookupAppointments(ctx context.Context, documentID string) ([]Appointment, error)

	// CreateClinicalRecord registers a new clinical history.
	CreateClinicalRecord(ctx context.Context, rec ClinicalRecord) error
}
