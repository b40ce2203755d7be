package blob

import (
	memorystore "watercolumn/internal/infra/blob/memory"
)

// NewMemory returns an in-memory artifact Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
