package domain

import "errors"

// Error kinds shared by services, repositories and the HTTP layer. Wrap them
// with fmt.Errorf("%w: ...") to add detail and test with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrCapacity   = errors.New("insufficient seats")
	ErrConflict   = errors.New("conflict")
)
