package students

import "errors"

// Expected registration outcomes.
var (
	ErrNameTaken = errors.New("name already taken")
	ErrEmptyName = errors.New("name must not be empty")
)
