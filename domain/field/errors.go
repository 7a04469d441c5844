package field

import "errors"

var (
	// ErrUnknownModule is returned for module names outside the closed set.
	ErrUnknownModule = errors.New("unknown module")

	// ErrInvalidType is returned for field types outside the closed set.
	ErrInvalidType = errors.New("invalid field type")

	// ErrInvalidField is returned when a field definition is incomplete.
	ErrInvalidField = errors.New("invalid field")

	// ErrDuplicateName is returned when a field name is already taken in a module.
	ErrDuplicateName = errors.New("field name already exists")

	// ErrDuplicateID is returned when a schema repeats a field id in a module.
	ErrDuplicateID = errors.New("duplicate field id")

	// ErrSystemField is returned when an operation is not permitted on a system field.
	ErrSystemField = errors.New("system field cannot be modified")
)
