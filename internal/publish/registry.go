package publish

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry — реестр publishers по платформам.
//
// Сам реализует Publisher: Publish маршрутизирует запрос к publisher'у
// платформы из Request.Platform.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]Publisher
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		publishers: make(map[string]Publisher),
	}
}

// Register регистрирует publisher платформы. Повторная регистрация
// заменяет предыдущего.
func (r *Registry) Register(platform string, p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[platform] = p
}

// Platforms возвращает отсортированный список зарегистрированных платформ.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]string, 0, len(r.publishers))
	for p := range r.publishers {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

// Publish реализует Publisher.
func (r *Registry) Publish(ctx context.Context, req *Request) (*Result, error) {
	r.mu.RLock()
	p, ok := r.publishers[req.Platform]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("platform %q is not supported", req.Platform)
	}
	return p.Publish(ctx, req)
}
