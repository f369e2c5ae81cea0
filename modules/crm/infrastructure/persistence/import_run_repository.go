package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/iota-crm/modules/crm/domain/entities/importrun"
)

// ImportRunRepository keeps the latest run per tenant and entity in a redis hash.
type ImportRunRepository struct {
	redis  redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewImportRunRepository(client redis.Cmdable, ttl time.Duration) *ImportRunRepository {
	return &ImportRunRepository{redis: client, prefix: "crm:imports:last:v1", ttl: ttl}
}

func (r *ImportRunRepository) hashKey(tenantID uuid.UUID) string {
	return r.prefix + ":" + tenantID.String()
}

func (r *ImportRunRepository) Save(ctx context.Context, run importrun.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	key := r.hashKey(run.TenantID)
	if err := r.redis.HSet(ctx, key, run.Entity, data).Err(); err != nil {
		return gerrors.Wrap(err, "save import run")
	}
	if r.ttl > 0 {
		if err := r.redis.Expire(ctx, key, r.ttl).Err(); err != nil {
			return gerrors.Wrap(err, "expire import runs")
		}
	}
	return nil
}

func (r *ImportRunRepository) Last(ctx context.Context, tenantID uuid.UUID, entity string) (importrun.Run, error) {
	result, err := r.redis.HGet(ctx, r.hashKey(tenantID), entity).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return importrun.Run{}, importrun.ErrNotFound
		}
		return importrun.Run{}, gerrors.Wrap(err, "load import run")
	}
	var run importrun.Run
	if err := json.Unmarshal([]byte(result), &run); err != nil {
		return importrun.Run{}, gerrors.Wrap(err, "decode import run")
	}
	return run, nil
}
