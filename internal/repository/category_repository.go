package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuscare/triage-service/internal/domain"
)

// CategoryRepository reads the externally managed category catalog.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	db DB
}

// NewCategoryRepository instantiates the repository.
func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, slug, name, eligible_roles, crisis_detection_enabled, sla_response_hours, active, created_at, updated_at`

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM ticket_categories WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM ticket_categories WHERE slug=$1`
	return r.fetchSingle(ctx, query, slug)
}

func (r *categoryRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var category domain.Category
	var roles []string
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&category.ID,
		&category.Slug,
		&category.Name,
		&roles,
		&category.CrisisDetectionEnabled,
		&category.SLAResponseHours,
		&category.Active,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	category.EligibleRoles = toRoles(roles)
	return &category, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM ticket_categories WHERE active=TRUE ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		var roles []string
		if err := rows.Scan(
			&category.ID,
			&category.Slug,
			&category.Name,
			&roles,
			&category.CrisisDetectionEnabled,
			&category.SLAResponseHours,
			&category.Active,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		category.EligibleRoles = toRoles(roles)
		result = append(result, category)
	}
	return result, rows.Err()
}

func toRoles(values []string) []domain.Role {
	roles := make([]domain.Role, 0, len(values))
	for _, v := range values {
		roles = append(roles, domain.Role(v))
	}
	return roles
}

// cachedCategoryRepository fronts catalog reads with a Redis cache. The
// catalog is externally owned and changes rarely; a short TTL keeps policy
// edits visible without hammering Postgres on every triage decision.
type cachedCategoryRepository struct {
	inner CategoryRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedCategoryRepository wraps a catalog repository with a Redis cache.
func NewCachedCategoryRepository(inner CategoryRepository, cache *redis.Client, ttl time.Duration) CategoryRepository {
	if cache == nil || ttl <= 0 {
		return inner
	}
	return &cachedCategoryRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *cachedCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	key := categoryCacheKey("id", id)
	if cached, ok := r.lookup(ctx, key); ok {
		return cached, nil
	}
	category, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, key, category)
	return category, nil
}

func (r *cachedCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	key := categoryCacheKey("slug", slug)
	if cached, ok := r.lookup(ctx, key); ok {
		return cached, nil
	}
	category, err := r.inner.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, key, category)
	return category, nil
}

func (r *cachedCategoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	return r.inner.ListActive(ctx)
}

func (r *cachedCategoryRepository) lookup(ctx context.Context, key string) (*domain.Category, bool) {
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var category domain.Category
	if err := json.Unmarshal(raw, &category); err != nil {
		return nil, false
	}
	return &category, true
}

func (r *cachedCategoryRepository) remember(ctx context.Context, key string, category *domain.Category) {
	raw, err := json.Marshal(category)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, key, raw, r.ttl).Err()
}

func categoryCacheKey(kind string, val any) string {
	return fmt.Sprintf("helpdesk:category:%s:%v", kind, val)
}
