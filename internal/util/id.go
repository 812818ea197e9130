package util

import "github.com/google/uuid"

// NewID generates a unique identifier for tasks, messages and runs.
func NewID() string { return uuid.NewString() }
