package clinic

import (
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

// Clinic represents a clinic location patients book appointments at
type Clinic struct {
	ID      types.ID      `json:"id"`
	Name    string        `json:"name"`
	Address types.Address `json:"address"`
	Phone   string        `json:"phone,omitempty"`
	Email   string        `json:"email,omitempty"`

	Specialties []string `json:"specialties,omitempty"`

	// OperatingHours maps weekday name to an opening range, e.g.
	// "monday": "08:00-17:00". Closed days are omitted.
	OperatingHours map[string]string `json:"operating_hours,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateClinicRequest is the request to create a clinic
type CreateClinicRequest struct {
	Name           string            `json:"name" validate:"required,min=2,max=100"`
	Address        types.Address     `json:"address"`
	Phone          string            `json:"phone,omitempty"`
	Email          string            `json:"email,omitempty"`
	Specialties    []string          `json:"specialties,omitempty"`
	OperatingHours map[string]string `json:"operating_hours,omitempty"`
}

// UpdateClinicRequest is the request to update a clinic
type UpdateClinicRequest struct {
	Name           *string            `json:"name,omitempty"`
	Address        *types.Address     `json:"address,omitempty"`
	Phone          *string            `json:"phone,omitempty"`
	Email          *string            `json:"email,omitempty"`
	Specialties    *[]string          `json:"specialties,omitempty"`
	OperatingHours *map[string]string `json:"operating_hours,omitempty"`
}

// ListClinicsFilter defines filters for listing clinics
type ListClinicsFilter struct {
	Specialty string `json:"specialty,omitempty"`
	Search    string `json:"search,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}
