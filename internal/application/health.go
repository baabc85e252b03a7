package application

import (
	"context"

	"github.com/pansat-go/pansat/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	registry *RegistryService
}

// NewHealthService creates a new health service.
func NewHealthService(registry *RegistryService) *HealthService {
	return &HealthService{registry: registry}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true
}

// IsReady returns true if the service is ready to accept requests. The
// service is ready once the registry is reachable, regardless of whether
// any product has been indexed yet.
func (s *HealthService) IsReady(ctx context.Context) bool {
	_, err := s.registry.Products(ctx)
	return err == nil
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	products, _ := s.registry.Products(ctx)

	components := map[string]string{
		"registry": "ok",
	}
	if !s.IsReady(ctx) {
		components["registry"] = "unavailable"
	}

	return input.HealthDetails{
		Healthy:         s.IsHealthy(ctx),
		Ready:           s.IsReady(ctx),
		ProductsTracked: len(products),
		Components:      components,
	}
}
