package patient

import (
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// Patient represents a registered patient. Contact details feed the
// reminder channels, so email and phone are required at registration.
type Patient struct {
	ID    types.ID  `json:"id"`
	MRN   types.MRN `json:"mrn,omitempty"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`

	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty"`
	MedicalNotes     string     `json:"medical_notes,omitempty"`

	ConsentGiven bool       `json:"consent_given"`
	ConsentDate  *time.Time `json:"consent_date,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"` // Soft delete, kept for the audit trail
}

// IsDeleted reports whether the patient record has been soft deleted
func (p Patient) IsDeleted() bool {
	return p.DeletedAt != nil
}

// CreatePatientRequest is the request to register a patient
type CreatePatientRequest struct {
	MRN              string     `json:"mrn,omitempty"`
	Name             string     `json:"name" validate:"required,min=1,max=100"`
	Email            string     `json:"email" validate:"required,email"`
	Phone            string     `json:"phone" validate:"required,max=20"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty"`
	MedicalNotes     string     `json:"medical_notes,omitempty"`
	ConsentGiven     bool       `json:"consent_given"`
}

// UpdatePatientRequest is the request to update a patient
type UpdatePatientRequest struct {
	Name             *string    `json:"name,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	EmergencyContact *string    `json:"emergency_contact,omitempty"`
	MedicalNotes     *string    `json:"medical_notes,omitempty"`
	ConsentGiven     *bool      `json:"consent_given,omitempty"`
}

// ListPatientsFilter defines filters for listing patients
type ListPatientsFilter struct {
	ConsentGiven *bool  `json:"consent_given,omitempty"`
	Search       string `json:"search,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}
