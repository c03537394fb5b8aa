package storage

import (
	"context"
	"time"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Repository defines the interface for attempt persistence
type Repository interface {
	// Attempts
	CreateAttempt(ctx context.Context, a *models.Attempt) error
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)
	ListAttempts(ctx context.Context, filters models.AttemptFilters) ([]*models.Attempt, error)
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
