package metamodel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arcadia-eng/designdb/internal/model"
)

// SchemaViolationError reports object or component structure that disagrees
// with the metamodel. It carries enough context to name the offending
// object, type and component kinds.
type SchemaViolationError struct {
	// TypeName is the object type being validated.
	TypeName string

	// Object is the offending object identity, when known. Zero when the
	// violation was detected before an identity existed (e.g. while
	// declaring the metamodel itself).
	Object model.ObjectID

	// Missing lists required component kinds absent from the object.
	Missing []model.ComponentKind

	// Undeclared lists component kinds present on the object but not
	// declared for its type.
	Undeclared []model.ComponentKind

	// Reason carries violations that are not a kind-set mismatch, such as
	// a mistyped attribute value.
	Reason string
}

func (e *SchemaViolationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing components %v", e.Missing))
	}
	if len(e.Undeclared) > 0 {
		parts = append(parts, fmt.Sprintf("undeclared components %v", e.Undeclared))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	detail := strings.Join(parts, "; ")
	if e.Object != 0 {
		return fmt.Sprintf("schema violation: object %s of type %q: %s", e.Object, e.TypeName, detail)
	}
	return fmt.Sprintf("schema violation: type %q: %s", e.TypeName, detail)
}

// IsSchemaViolation reports whether err is (or wraps) a SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolationError
	return errors.As(err, &sv)
}

// UnknownTypeError reports a reference to a type the metamodel does not
// declare.
type UnknownTypeError struct {
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown object type %q", e.TypeName)
}

// IsUnknownType reports whether err is (or wraps) an UnknownTypeError.
func IsUnknownType(err error) bool {
	var ut *UnknownTypeError
	return errors.As(err, &ut)
}
