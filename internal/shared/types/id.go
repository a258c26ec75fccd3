package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is a UUID wrapper used for all entity identifiers
type ID string

// NewID generates a new random ID
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID validates a string as a UUID and returns it as an ID
func ParseID(s string) (ID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid ID: %w", err)
	}
	return ID(s), nil
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsZero checks if the ID is empty
func (id ID) IsZero() bool {
	return id == ""
}

// Value implements driver.Valuer for database serialization
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return string(id), nil
}

// Scan implements sql.Scanner for database deserialization
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	return nil
}
