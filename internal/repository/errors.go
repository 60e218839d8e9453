package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateEmail indicates a write collided with the unique email
// constraint.
var ErrDuplicateEmail = errors.New("repository: duplicate email")
