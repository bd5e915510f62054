package user

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrUnknownRole = errors.New("unknown role")
	ErrEmptyKey    = errors.New("empty natural key")
)

// IdentityStore is the partitioned store of one role.
type IdentityStore interface {
	FindIdentity(ctx context.Context, key NaturalKey) (Identity, error)
	UpdatePassword(ctx context.Context, id string, hash []byte) error
}

// Resolver looks identities up across the role-partitioned stores.
type Resolver struct {
	stores map[Role]IdentityStore
	order  []Role // by priority, highest first
}

func NewResolver(stores map[Role]IdentityStore) *Resolver {
	order := make([]Role, 0, len(stores))
	for role := range stores {
		order = append(order, role)
	}
	sort.Slice(order, func(i, j int) bool { return RolePriority(order[i]) > RolePriority(order[j]) })
	return &Resolver{stores: stores, order: order}
}

func (r *Resolver) Store(role Role) (IdentityStore, error) {
	store, ok := r.stores[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	return store, nil
}

// Find looks key up in the store of role.
func (r *Resolver) Find(ctx context.Context, role Role, key NaturalKey) (Identity, error) {
	key = key.Clean()
	if key.IsEmpty() {
		return Identity{}, ErrEmptyKey
	}
	store, err := r.Store(role)
	if err != nil {
		return Identity{}, err
	}
	ident, err := store.FindIdentity(ctx, key)
	if err != nil {
		return Identity{}, err
	}
	ident.Role = role
	return ident, nil
}

// FindAny looks key up in the stores of roles (all of them when none given),
// highest priority first, and returns the first match.
func (r *Resolver) FindAny(ctx context.Context, key NaturalKey, roles ...Role) (Identity, error) {
	if len(roles) == 0 {
		roles = r.order
	}
	for _, role := range roles {
		ident, err := r.Find(ctx, role, key)
		if err == nil {
			return ident, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return Identity{}, err
		}
	}
	return Identity{}, ErrNotFound
}

// Exists reports whether key is taken in any of roles (all of them when none given).
func (r *Resolver) Exists(ctx context.Context, key NaturalKey, roles ...Role) (bool, error) {
	if _, err := r.FindAny(ctx, key, roles...); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
