// Package id defines UUID-based identity types for every stepflow entity.
//
// Every persisted entity uses the same underlying representation, a
// github.com/google/uuid.UUID. String() returns the plain UUID text,
// matching the external schema's "all ids are UUIDs" contract; callers
// that need to tell entity types apart in logs do so through the
// WorkflowID/RunID/... aliases or a field name, not through the ID value
// itself.
package id

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is the primary identifier type for all stepflow entities. The zero
// value is Nil, the all-zero UUID.
type ID struct {
	uuid  uuid.UUID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a fresh random (v4) ID.
func New() ID {
	return ID{uuid: uuid.New(), valid: true}
}

// Parse parses a UUID string into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{uuid: u, valid: true}, nil
}

// Type aliases so call sites can document intent without a second type.
type (
	WorkflowID   = ID
	RunID        = ID
	StepID       = ID
	StepResultID = ID
	OrderID      = ID
)

// NewWorkflowID generates a new unique workflow ID.
func NewWorkflowID() ID { return New() }

// NewRunID generates a new unique run ID.
func NewRunID() ID { return New() }

// NewStepID generates a new unique step ID.
func NewStepID() ID { return New() }

// NewStepResultID generates a new unique idempotency key.
func NewStepResultID() ID { return New() }

// NewOrderID generates a new unique business-object ID.
func NewOrderID() ID { return New() }

// String returns the canonical UUID text form. Returns "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.uuid.String()
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// Equal reports whether two IDs refer to the same UUID.
func (i ID) Equal(other ID) bool {
	if i.valid != other.valid {
		return false
	}
	return !i.valid || i.uuid == other.uuid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.uuid.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer for database storage. Returns nil for the
// Nil ID so that optional foreign-key columns store SQL NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.uuid.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil
		return nil
	}
	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil
			return nil
		}
		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil
			return nil
		}
		return i.UnmarshalText(v)
	case [16]byte:
		*i = ID{uuid: uuid.UUID(v), valid: true}
		return nil
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
