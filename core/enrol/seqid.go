package enrol

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/school"
)

// Allocator hands out the next sequence number of (prefix, year).
type Allocator interface {
	Allocate(ctx context.Context, tx school.Store, prefix string, year int) (int, error)
}

// ScanAllocator reads the latest code of (prefix, year) and increments it.
// Concurrent batches may read the same latest code; the unique student code
// then fails one of the rows.
type ScanAllocator struct{}

func (ScanAllocator) Allocate(ctx context.Context, tx school.Store, prefix string, year int) (int, error) {
	codePrefix := school.CodePrefix(prefix, year)
	latest, err := tx.Students().LatestCodeWithPrefix(ctx, codePrefix)
	if err != nil {
		return 0, errors.Wrap(err, "finding latest code")
	}
	if latest == "" {
		return 1, nil
	}
	n, err := school.ParseCodeSuffix(latest, codePrefix)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// CounterAllocator increments the store's sequence counter, within the row transaction.
type CounterAllocator struct{}

func (CounterAllocator) Allocate(ctx context.Context, tx school.Store, prefix string, year int) (int, error) {
	n, err := tx.Sequences().NextSequence(ctx, prefix, year)
	if err != nil {
		return 0, errors.Wrap(err, "incrementing sequence")
	}
	return n, nil
}
