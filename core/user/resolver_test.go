package user

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal IdentityStore used by the package tests.
type memStore struct {
	mu     sync.Mutex
	idents []Identity
	err    error
}

func (s *memStore) FindIdentity(_ context.Context, key NaturalKey) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Identity{}, s.err
	}
	for _, ident := range s.idents {
		switch {
		case key.ID != "" && ident.ID == key.ID,
			key.Username != "" && ident.Username == key.Username,
			key.Email != "" && ident.Email == key.Email,
			key.Phone != "" && ident.Phone == key.Phone,
			key.UsernameOrEmail != "" && (ident.Username == key.UsernameOrEmail || ident.Email == key.UsernameOrEmail):
			return ident, nil
		}
	}
	return Identity{}, errors.Wrap(ErrNotFound, "memStore")
}

func (s *memStore) UpdatePassword(_ context.Context, id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.idents {
		if s.idents[i].ID == id {
			s.idents[i].PasswordHash = hash
			return nil
		}
	}
	return ErrNotFound
}

func newTestResolver() (*Resolver, map[Role]*memStore) {
	stores := map[Role]*memStore{
		RoleAdmin:   {idents: []Identity{{ID: "a1", Username: "boss", Email: "shared@school.test"}}},
		RoleTeacher: {idents: []Identity{{ID: "t1", Username: "mrsmith", Email: "smith@school.test", Phone: "0811111111"}}},
		RoleStudent: {idents: []Identity{{ID: "s1", Username: "alice", Email: "shared@school.test", Phone: "0822222222"}}},
		RoleParent:  {idents: []Identity{{ID: "p1", Username: "bobsmith", Phone: "0833333333"}}},
	}
	idStores := make(map[Role]IdentityStore, len(stores))
	for role, store := range stores {
		idStores[role] = store
	}
	return NewResolver(idStores), stores
}

func TestResolver_Find(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	tests := []struct {
		name    string
		role    Role
		key     NaturalKey
		wantID  string
		wantErr error
	}{
		{name: "empty key", role: RoleStudent, key: NaturalKey{Username: "  "}, wantErr: ErrEmptyKey},
		{name: "unknown role", role: "ghost", key: NaturalKey{Username: "alice"}, wantErr: ErrUnknownRole},
		{name: "not found in role", role: RoleParent, key: NaturalKey{Username: "alice"}, wantErr: ErrNotFound},
		{name: "username is cleaned", role: RoleStudent, key: NaturalKey{Username: " ALICE "}, wantID: "s1"},
		{name: "by phone", role: RoleParent, key: NaturalKey{Phone: "0833333333"}, wantID: "p1"},
		{name: "by id", role: RoleTeacher, key: NaturalKey{ID: "t1"}, wantID: "t1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident, err := r.Find(ctx, tt.role, tt.key)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ident.ID)
			assert.Equal(t, tt.role, ident.Role)
		})
	}
}

func TestResolver_FindAny(t *testing.T) {
	r, stores := newTestResolver()
	ctx := context.Background()

	t.Run("priority order", func(t *testing.T) {
		ident, err := r.FindAny(ctx, NaturalKey{Email: "shared@school.test"})
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, ident.Role)
	})

	t.Run("restricted roles", func(t *testing.T) {
		ident, err := r.FindAny(ctx, NaturalKey{Email: "shared@school.test"}, RoleStudent, RoleParent)
		require.NoError(t, err)
		assert.Equal(t, RoleStudent, ident.Role)
		assert.Equal(t, "s1", ident.ID)
	})

	t.Run("username or email", func(t *testing.T) {
		ident, err := r.FindAny(ctx, NaturalKey{UsernameOrEmail: "Smith@School.test"})
		require.NoError(t, err)
		assert.Equal(t, RoleTeacher, ident.Role)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.FindAny(ctx, NaturalKey{Username: "nobody"})
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("store failure stops the walk", func(t *testing.T) {
		boom := errors.New("boom")
		stores[RoleTeacher].err = boom
		defer func() { stores[RoleTeacher].err = nil }()

		_, err := r.FindAny(ctx, NaturalKey{Phone: "0833333333"})
		assert.Equal(t, boom, errors.Cause(err))
	})
}

func TestResolver_Exists(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   NaturalKey
		roles []Role
		want  bool
	}{
		{name: "phone in any store", key: NaturalKey{Phone: "0822222222"}, want: true},
		{name: "phone outside given roles", key: NaturalKey{Phone: "0822222222"}, roles: []Role{RoleParent}, want: false},
		{name: "unused email", key: NaturalKey{Email: "new@school.test"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Exists(ctx, tt.key, tt.roles...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
