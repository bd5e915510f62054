package redisdb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrol"
	"github.com/trezcool/campus/core/school"
)

// Open connects to redis and checks the connection.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// SequenceAllocator allocates sequence numbers with INCR on seq:<prefix>:<year>.
// Numbers taken by rolled back rows are not reused.
type SequenceAllocator struct {
	client redis.Cmdable
	seed   enrol.Allocator
}

var _ enrol.Allocator = (*SequenceAllocator)(nil) // interface compliance check

func NewSequenceAllocator(client redis.Cmdable) *SequenceAllocator {
	return &SequenceAllocator{client: client, seed: enrol.ScanAllocator{}}
}

func sequenceKey(prefix string, year int) string {
	return fmt.Sprintf("seq:%s:%d", prefix, year)
}

// Allocate seeds the counter from the existing student codes the first time (prefix, year) is seen.
func (a *SequenceAllocator) Allocate(ctx context.Context, tx school.Store, prefix string, year int) (int, error) {
	key := sequenceKey(prefix, year)

	n, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "checking sequence")
	}
	if n == 0 {
		next, err := a.seed.Allocate(ctx, tx, prefix, year)
		if err != nil {
			return 0, errors.Wrap(err, "seeding sequence")
		}
		if err = a.client.SetNX(ctx, key, next-1, 0).Err(); err != nil {
			return 0, errors.Wrap(err, "seeding sequence")
		}
	}

	val, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "incrementing sequence")
	}
	return int(val), nil
}
