package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for patients
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new patient repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a new patient
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO attend.patients (
			id, mrn, name, email, phone,
			date_of_birth, emergency_contact, medical_notes,
			consent_given, consent_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MRN, p.Name, p.Email, p.Phone,
		p.DateOfBirth, p.EmergencyContact, p.MedicalNotes,
		p.ConsentGiven, p.ConsentDate,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("patient with this email or MRN already exists")
		}
		return errors.Wrap(err, "failed to create patient")
	}

	return nil
}

// Get retrieves a patient by ID. Soft-deleted patients are not returned.
func (r *Repository) Get(ctx context.Context, id types.ID) (*Patient, error) {
	query := `
		SELECT id, mrn, name, email, phone,
			date_of_birth, emergency_contact, medical_notes,
			consent_given, consent_date,
			created_at, updated_at, deleted_at
		FROM attend.patients
		WHERE id = $1 AND deleted_at IS NULL`

	p := &Patient{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.MRN, &p.Name, &p.Email, &p.Phone,
		&p.DateOfBirth, &p.EmergencyContact, &p.MedicalNotes,
		&p.ConsentGiven, &p.ConsentDate,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient")
	}

	return p, nil
}

// GetByMRN retrieves a patient by medical record number
func (r *Repository) GetByMRN(ctx context.Context, mrn types.MRN) (*Patient, error) {
	query := `
		SELECT id, mrn, name, email, phone,
			date_of_birth, emergency_contact, medical_notes,
			consent_given, consent_date,
			created_at, updated_at, deleted_at
		FROM attend.patients
		WHERE mrn = $1 AND deleted_at IS NULL`

	p := &Patient{}
	err := r.pool.QueryRow(ctx, query, mrn).Scan(
		&p.ID, &p.MRN, &p.Name, &p.Email, &p.Phone,
		&p.DateOfBirth, &p.EmergencyContact, &p.MedicalNotes,
		&p.ConsentGiven, &p.ConsentDate,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", mrn.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient by MRN")
	}

	return p, nil
}

// Update updates a patient
func (r *Repository) Update(ctx context.Context, p *Patient) error {
	query := `
		UPDATE attend.patients SET
			name = $2, email = $3, phone = $4,
			date_of_birth = $5, emergency_contact = $6, medical_notes = $7,
			consent_given = $8, consent_date = $9,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone,
		p.DateOfBirth, p.EmergencyContact, p.MedicalNotes,
		p.ConsentGiven, p.ConsentDate,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("patient with this email already exists")
		}
		return errors.Wrap(err, "failed to update patient")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", p.ID.String())
	}

	return nil
}

// SoftDelete marks a patient as deleted. The row stays behind for the
// audit trail.
func (r *Repository) SoftDelete(ctx context.Context, id types.ID) error {
	query := `
		UPDATE attend.patients SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete patient")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// List lists patients with optional filters
func (r *Repository) List(ctx context.Context, filter ListPatientsFilter) ([]Patient, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}
	argNum := 1

	if filter.ConsentGiven != nil {
		conditions = append(conditions, fmt.Sprintf("consent_given = $%d", argNum))
		args = append(args, *filter.ConsentGiven)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	// Get total count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attend.patients %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count patients")
	}

	// Get patients
	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT id, mrn, name, email, phone,
			date_of_birth, emergency_contact, medical_notes,
			consent_given, consent_date,
			created_at, updated_at, deleted_at
		FROM attend.patients
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list patients")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.MRN, &p.Name, &p.Email, &p.Phone,
			&p.DateOfBirth, &p.EmergencyContact, &p.MedicalNotes,
			&p.ConsentGiven, &p.ConsentDate,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan patient")
		}
		patients = append(patients, p)
	}

	return patients, total, nil
}
