package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds a single provider health check
const DefaultCheckTimeout = 3 * time.Second

// Status is the outcome of one provider check
type Status struct {
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Healthy bool          `json:"healthy"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`

	err error
}

// Err returns the check error, nil when healthy
func (s Status) Err() error {
	return s.err
}

// Registry holds the external dependencies the engine reports readiness for
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	timeout   time.Duration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		timeout:   DefaultCheckTimeout,
	}
}

// Register adds or replaces a provider
func (r *Registry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// Get returns the provider registered under name, or nil
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns the registered names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check probes every provider concurrently, each under its own timeout,
// and returns the statuses sorted by name
func (r *Registry) Check(ctx context.Context) []Status {
	r.mu.RLock()
	snapshot := make(map[string]Provider, len(r.providers))
	for name, p := range r.providers {
		snapshot[name] = p
	}
	timeout := r.timeout
	r.mu.RUnlock()

	statuses := make([]Status, 0, len(snapshot))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, p := range snapshot {
		wg.Add(1)
		go func(name string, p Provider) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.HealthCheck(checkCtx)
			st := Status{Name: name, Type: p.Type(), Healthy: err == nil, Latency: time.Since(start), err: err}
			if err != nil {
				st.Error = err.Error()
			}

			mu.Lock()
			statuses = append(statuses, st)
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Ready returns the first failing provider, by name, as "name: err"
func (r *Registry) Ready(ctx context.Context) error {
	for _, st := range r.Check(ctx) {
		if st.err != nil {
			return fmt.Errorf("%s: %w", st.Name, st.err)
		}
	}
	return nil
}
