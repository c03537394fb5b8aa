// Package services tracks the external dependencies the engine needs to be
// ready: the attempt database, the shared verdict cache, the catalog.
package services

import "context"

// Provider is a dependency that can report its health
type Provider interface {
	// Type returns the dependency type name
	Type() string

	// HealthCheck checks if the dependency is available
	HealthCheck(ctx context.Context) error
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	serviceType string
}

// Type returns the service type
func (p *BaseProvider) Type() string {
	return p.serviceType
}

// FuncProvider adapts a function into a Provider
type FuncProvider struct {
	BaseProvider
	check func(ctx context.Context) error
}

// NewFuncProvider wraps check as a provider of the given type
func NewFuncProvider(serviceType string, check func(ctx context.Context) error) *FuncProvider {
	return &FuncProvider{BaseProvider: BaseProvider{serviceType: serviceType}, check: check}
}

// HealthCheck runs the wrapped function
func (p *FuncProvider) HealthCheck(ctx context.Context) error {
	return p.check(ctx)
}
