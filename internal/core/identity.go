package core

import "github.com/google/uuid"

// UUIDGenerator issues random (version 4) UUIDs as product identifiers.
type UUIDGenerator struct{}

// NewID implements domain.IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }
