package kibela2esa

import (
	"fmt"
	"sync"
)

// LinkTarget is where a migrated document ended up.
type LinkTarget struct {
	DestinationID int
	Title         string
}

// LinkMapping maps source document ids to their destination posts.
// It is filled during the create stage and frozen before links are rewritten.
type LinkMapping struct {
	mu      sync.RWMutex
	targets map[string]LinkTarget
	frozen  bool
}

// NewLinkMapping returns an empty, writable mapping.
func NewLinkMapping() *LinkMapping {
	return &LinkMapping{targets: make(map[string]LinkTarget)}
}

// Set records the target for id. Ids are set at most once.
func (m *LinkMapping) Set(id string, target LinkTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return fmt.Errorf("%w: set %s", ErrMappingFrozen, id)
	}
	if _, exists := m.targets[id]; exists {
		return fmt.Errorf("%w: document %s", ErrAlreadyAssigned, id)
	}
	m.targets[id] = target
	return nil
}

// Get returns the target for id.
func (m *LinkMapping) Get(id string) (LinkTarget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.targets[id]
	return target, ok
}

// Freeze makes the mapping read-only.
func (m *LinkMapping) Freeze() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (m *LinkMapping) Frozen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frozen
}

// Len returns the number of mapped documents.
func (m *LinkMapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.targets)
}
