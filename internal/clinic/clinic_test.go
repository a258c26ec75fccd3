package clinic

import (
	"testing"
	"time"

	"github.com/brukd/attend/internal/shared/types"
)

func TestClinicCreation(t *testing.T) {
	c := Clinic{
		ID:          types.NewID(),
		Name:        "Downtown Clinic",
		Address:     types.NewAddress("123 Main St", "Toronto", "ON", "M5V 2T6"),
		Phone:       "555-0100",
		Email:       "info@downtownclinic.example.com",
		Specialties: []string{"family_medicine", "physiotherapy"},
		OperatingHours: map[string]string{
			"monday":  "08:00-17:00",
			"tuesday": "08:00-17:00",
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if c.ID.IsZero() {
		t.Error("Clinic ID should not be zero")
	}

	if c.Name != "Downtown Clinic" {
		t.Errorf("Expected name 'Downtown Clinic', got '%s'", c.Name)
	}

	if c.Address.City != "Toronto" {
		t.Errorf("Expected city 'Toronto', got '%s'", c.Address.City)
	}

	if c.Address.Country != "CA" {
		t.Errorf("Expected country 'CA', got '%s'", c.Address.Country)
	}

	if len(c.Specialties) != 2 {
		t.Errorf("Expected 2 specialties, got %d", len(c.Specialties))
	}

	if c.OperatingHours["monday"] != "08:00-17:00" {
		t.Errorf("Expected monday hours '08:00-17:00', got '%s'", c.OperatingHours["monday"])
	}

	if _, open := c.OperatingHours["sunday"]; open {
		t.Error("Sunday should not be in operating hours")
	}
}

func TestCreateClinicRequest(t *testing.T) {
	req := CreateClinicRequest{
		Name:        "Westside Health Centre",
		Address:     types.NewAddress("45 Elm Ave", "Vancouver", "BC", "V6B 1A1"),
		Phone:       "555-0101",
		Specialties: []string{"consultation"},
	}

	if req.Name == "" {
		t.Error("Name should not be empty")
	}

	if req.Address.Province != "BC" {
		t.Errorf("Expected province 'BC', got '%s'", req.Address.Province)
	}
}

func TestUpdateClinicRequest(t *testing.T) {
	newName := "Renamed Clinic"
	newSpecialties := []string{"therapy", "surgery"}

	req := UpdateClinicRequest{
		Name:        &newName,
		Specialties: &newSpecialties,
	}

	if req.Name == nil || *req.Name != newName {
		t.Error("Name should be set correctly")
	}

	if req.Specialties == nil || len(*req.Specialties) != 2 {
		t.Error("Specialties should be set correctly")
	}

	if req.Address != nil {
		t.Error("Unset fields should stay nil")
	}
}

func TestListClinicsFilter(t *testing.T) {
	filter := ListClinicsFilter{
		Specialty: "physiotherapy",
		Search:    "Downtown",
		Limit:     25,
	}

	if filter.Specialty != "physiotherapy" {
		t.Errorf("Expected specialty 'physiotherapy', got '%s'", filter.Specialty)
	}

	if filter.Search != "Downtown" {
		t.Errorf("Expected search 'Downtown', got '%s'", filter.Search)
	}

	if filter.Limit != 25 {
		t.Errorf("Expected limit 25, got %d", filter.Limit)
	}
}
