package dla

import "errors"

var (
	// ErrComplete is returned by Step once the aggregate has reached its target size.
	ErrComplete = errors.New("dla: simulation already complete")
	// ErrDuplicateIndex marks an insert of a stuck index the tree has already seen.
	ErrDuplicateIndex = errors.New("dla: stuck index already indexed")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("dla: invalid config")
)
