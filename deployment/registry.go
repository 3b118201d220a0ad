package deployment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dxlander/dxlander/domain"
)

// Registry maps deployment platforms to their executors. Registration happens
// at startup; lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.Platform]PlatformExecutor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.Platform]PlatformExecutor)}
}

func (r *Registry) Register(platform domain.Platform, executor PlatformExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[platform] = executor
}

func (r *Registry) Get(platform domain.Platform) (PlatformExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return executor, nil
}

// Platforms lists registered platforms in stable order.
func (r *Registry) Platforms() []domain.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	platforms := make([]domain.Platform, 0, len(r.executors))
	for platform := range r.executors {
		platforms = append(platforms, platform)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}
