package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for clinics
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new clinic repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a new clinic
func (r *Repository) Create(ctx context.Context, c *Clinic) error {
	addressJSON, err := json.Marshal(c.Address)
	if err != nil {
		return errors.Wrap(err, "failed to marshal address")
	}

	hoursJSON, err := json.Marshal(c.OperatingHours)
	if err != nil {
		return errors.Wrap(err, "failed to marshal operating hours")
	}

	query := `
		INSERT INTO attend.clinics (
			id, name, address, phone, email, specialties, operating_hours
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.Name, addressJSON, c.Phone, c.Email, c.Specialties, hoursJSON,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("clinic with this name already exists")
		}
		return errors.Wrap(err, "failed to create clinic")
	}

	return nil
}

// Get retrieves a clinic by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Clinic, error) {
	query := `
		SELECT id, name, address, phone, email, specialties, operating_hours,
			created_at, updated_at
		FROM attend.clinics
		WHERE id = $1`

	c := &Clinic{}
	var addressJSON, hoursJSON []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &addressJSON, &c.Phone, &c.Email, &c.Specialties, &hoursJSON,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("clinic", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get clinic")
	}

	if err := json.Unmarshal(addressJSON, &c.Address); err != nil {
		c.Address = types.Address{}
	}
	if err := json.Unmarshal(hoursJSON, &c.OperatingHours); err != nil {
		c.OperatingHours = make(map[string]string)
	}

	return c, nil
}

// Update updates a clinic
func (r *Repository) Update(ctx context.Context, c *Clinic) error {
	addressJSON, err := json.Marshal(c.Address)
	if err != nil {
		return errors.Wrap(err, "failed to marshal address")
	}

	hoursJSON, err := json.Marshal(c.OperatingHours)
	if err != nil {
		return errors.Wrap(err, "failed to marshal operating hours")
	}

	query := `
		UPDATE attend.clinics SET
			name = $2, address = $3, phone = $4, email = $5,
			specialties = $6, operating_hours = $7,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, addressJSON, c.Phone, c.Email, c.Specialties, hoursJSON,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update clinic")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("clinic", c.ID.String())
	}

	return nil
}

// Delete deletes a clinic
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM attend.clinics WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete clinic")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("clinic", id.String())
	}

	return nil
}

// List lists clinics with optional filters
func (r *Repository) List(ctx context.Context, filter ListClinicsFilter) ([]Clinic, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(specialties)", argNum))
		args = append(args, filter.Specialty)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attend.clinics %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count clinics")
	}

	// Get clinics
	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT id, name, address, phone, email, specialties, operating_hours,
			created_at, updated_at
		FROM attend.clinics
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list clinics")
	}
	defer rows.Close()

	var clinics []Clinic
	for rows.Next() {
		var c Clinic
		var addressJSON, hoursJSON []byte

		err := rows.Scan(
			&c.ID, &c.Name, &addressJSON, &c.Phone, &c.Email, &c.Specialties, &hoursJSON,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan clinic")
		}

		if err := json.Unmarshal(addressJSON, &c.Address); err != nil {
			c.Address = types.Address{}
		}
		if err := json.Unmarshal(hoursJSON, &c.OperatingHours); err != nil {
			c.OperatingHours = make(map[string]string)
		}

		clinics = append(clinics, c)
	}

	return clinics, total, nil
}
