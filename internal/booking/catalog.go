package booking

import (
	"context"
	"sync"
	"time"

	"barberdesk/internal/models"
)

// CatalogStore loads reference data from persistence.
type CatalogStore interface {
	ListActiveServices(ctx context.Context) ([]models.Service, error)
	ListBarbers(ctx context.Context) ([]models.Barber, error)
}

// Catalog is a read-through cache of services and barbers. Reference data
// changes rarely; booking requests hit it on every call.
type Catalog struct {
	store CatalogStore
	ttl   time.Duration

	mu        sync.RWMutex
	services  map[int64]models.Service
	barbers   map[int64]models.Barber
	refreshed time.Time
}

// NewCatalog creates a catalog cache with the given refresh interval.
func NewCatalog(store CatalogStore, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{store: store, ttl: ttl}
}

func (c *Catalog) ensureFresh(ctx context.Context) error {
	c.mu.RLock()
	fresh := c.services != nil && time.Since(c.refreshed) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh reloads both tables from the store.
func (c *Catalog) Refresh(ctx context.Context) error {
	services, err := c.store.ListActiveServices(ctx)
	if err != nil {
		return err
	}
	barbers, err := c.store.ListBarbers(ctx)
	if err != nil {
		return err
	}

	serviceMap := make(map[int64]models.Service, len(services))
	for _, s := range services {
		serviceMap[s.ID] = s
	}
	barberMap := make(map[int64]models.Barber, len(barbers))
	for _, b := range barbers {
		barberMap[b.ID] = b
	}

	c.mu.Lock()
	c.services = serviceMap
	c.barbers = barberMap
	c.refreshed = time.Now()
	c.mu.Unlock()
	return nil
}

// Service returns an active catalog entry, or false when unknown.
func (c *Catalog) Service(ctx context.Context, id int64) (models.Service, bool, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return models.Service{}, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[id]
	return s, ok, nil
}

// Barber returns a barber, or false when unknown.
func (c *Catalog) Barber(ctx context.Context, id int64) (models.Barber, bool, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return models.Barber{}, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.barbers[id]
	return b, ok, nil
}

// Services returns the active catalog.
func (c *Catalog) Services(ctx context.Context) ([]models.Service, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	return out, nil
}

// Barbers returns all barbers.
func (c *Catalog) Barbers(ctx context.Context) ([]models.Barber, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Barber, 0, len(c.barbers))
	for _, b := range c.barbers {
		out = append(out, b)
	}
	return out, nil
}
