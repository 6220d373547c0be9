package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ateliera/studio-booking/internal/model"
)

// ServiceRepo reads services and the professional/service relation.
// Both are external collaborator tables: admin CRUD writes them, the
// engine only reads defaults (price, capacity, duration) from them.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a new ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// GetByID returns the service with the given ID.  Inactive services are
// reported as ErrServiceNotFound so callers treat them as unbookable.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (*model.Service, error) {
	const q = `SELECT id, name, price_cents, default_capacity, duration_min, is_active, created_at, updated_at
	           FROM services WHERE id = ?`
	var s model.Service
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Name, &s.PriceCents, &s.DefaultCapacity, &s.DurationMin,
		&s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, ErrServiceNotFound
	}
	return &s, nil
}

// ListActive returns all active services keyed by ID.  The materializer
// uses the map to resolve default capacities for every rule in one pass.
func (r *ServiceRepo) ListActive(ctx context.Context) (map[uint64]model.Service, error) {
	const q = `SELECT id, name, price_cents, default_capacity, duration_min, is_active, created_at, updated_at
	           FROM services WHERE is_active = 1`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	services := make(map[uint64]model.Service)
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.PriceCents, &s.DefaultCapacity, &s.DurationMin,
			&s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		services[s.ID] = s
	}
	return services, rows.Err()
}

// ServicesForProfessional returns the IDs of active services a
// professional offers.  Rules without a service restriction expand into
// one slot series per offered service.
func (r *ServiceRepo) ServicesForProfessional(ctx context.Context, professionalID uint64) ([]uint64, error) {
	const q = `SELECT ps.service_id
	           FROM professional_services ps
	           JOIN services s ON s.id = ps.service_id
	           WHERE ps.professional_id = ? AND s.is_active = 1
	           ORDER BY ps.service_id`
	rows, err := r.db.QueryContext(ctx, q, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
