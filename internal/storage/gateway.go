package storage

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/campuscare/triage-service/pkg/util"
)

// Gateway applies the ordered tier fallback policy for attachment bytes.
// It owns the policy only; each tier owns its own storage mechanics.
type Gateway struct {
	tiers  []Tier
	logger *zap.Logger
}

// NewGateway builds a gateway over the ordered tier list.
func NewGateway(logger *zap.Logger, tiers ...Tier) *Gateway {
	return &Gateway{tiers: tiers, logger: logger}
}

// Store attempts the write against each tier in order; the first tier that
// accepts wins and its name is returned for persistence alongside the path.
// When every tier rejects the write the enclosing operation must fail, so a
// STORAGE_FAILURE is returned.
func (g *Gateway) Store(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	var lastErr error
	for _, tier := range g.tiers {
		if err := tier.Put(ctx, path, data, contentType); err != nil {
			g.logger.Warn("attachment tier rejected write",
				zap.String("tier", tier.Name()),
				zap.String("path", path),
				zap.Error(err))
			lastErr = err
			continue
		}
		return tier.Name(), nil
	}
	return "", apperrors.NewStorageFailure("all attachment tiers rejected write", lastErr)
}

// Resolve returns the bytes for a path. The recorded tier is consulted
// first, then the remaining tiers in configured order; a zero-byte or
// unreadable object at a tier counts as missing there.
func (g *Gateway) Resolve(ctx context.Context, tierName, path string) ([]byte, error) {
	for _, tier := range g.orderedFrom(tierName) {
		data, err := tier.Get(ctx, path)
		if err != nil {
			if !IsNotFound(err) {
				g.logger.Warn("attachment tier read failed",
					zap.String("tier", tier.Name()),
					zap.String("path", path),
					zap.Error(err))
			}
			continue
		}
		return data, nil
	}
	return nil, apperrors.NewNotFound("attachment bytes", map[string]any{"path": path})
}

// Remove deletes the path from every tier, best effort. Used both for the
// ticket-deletion cascade and for cleaning up orphaned bytes after a failed
// metadata write; deleting a non-existent path is not an error.
func (g *Gateway) Remove(ctx context.Context, path string) {
	for _, tier := range g.tiers {
		if err := tier.Delete(ctx, path); err != nil {
			g.logger.Warn("attachment tier delete failed",
				zap.String("tier", tier.Name()),
				zap.String("path", path),
				zap.Error(err))
		}
	}
}

func (g *Gateway) orderedFrom(tierName string) []Tier {
	if tierName == "" {
		return g.tiers
	}
	ordered := make([]Tier, 0, len(g.tiers))
	for _, tier := range g.tiers {
		if tier.Name() == tierName {
			ordered = append(ordered, tier)
		}
	}
	for _, tier := range g.tiers {
		if tier.Name() != tierName {
			ordered = append(ordered, tier)
		}
	}
	return ordered
}
