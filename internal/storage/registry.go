package storage

import (
	"fmt"
	"strings"
	"sync"
)

// Registry resolves disk names ("local", "s3", ...) to Disk implementations.
type Registry struct {
	mu    sync.RWMutex
	disks map[string]Disk
}

func NewRegistry() *Registry {
	return &Registry{disks: make(map[string]Disk)}
}

func (r *Registry) Register(name string, d Disk) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disks[name] = d
}

func (r *Registry) Get(name string) (Disk, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	d, ok := r.disks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage disk: %s", name)
	}
	return d, nil
}
