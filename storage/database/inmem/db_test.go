package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Open())
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx school.Store) error {
		_, err := tx.Parents().CreateParent(ctx, school.Parent{ID: "p1", Username: "bobsmith", Name: "Bob", Surname: "Smith", Phone: "1"})
		require.NoError(t, err)

		// visible within the transaction only
		_, err = tx.Parents().FindParentByName(ctx, "Bob", "Smith")
		require.NoError(t, err)
		return boom
	})
	assert.Equal(t, boom, err)
	_, err = store.Parents().FindParentByName(ctx, "Bob", "Smith")
	assert.Equal(t, user.ErrNotFound, err)

	err = store.WithinTx(ctx, func(tx school.Store) error {
		_, err := tx.Parents().CreateParent(ctx, school.Parent{ID: "p1", Username: "bobsmith", Name: "Bob", Surname: "Smith", Phone: "1"})
		return err
	})
	require.NoError(t, err)
	parent, err := store.Parents().FindParentByName(ctx, "Bob", "Smith")
	require.NoError(t, err)
	assert.Equal(t, "p1", parent.ID)

	assert.Panics(t, func() {
		_ = store.WithinTx(ctx, func(school.Store) error { panic("boom") })
	})
	// the lock was released
	assert.Len(t, store.AllParents(), 1)
}

func TestStore_uniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Open())

	_, err := store.Students().CreateStudent(ctx, school.Student{ID: "s1", Username: "alice", StudentCode: "STU-2026-001"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		student school.Student
		wantErr error
	}{
		{name: "same username", student: school.Student{ID: "s2", Username: "alice", StudentCode: "STU-2026-002"}, wantErr: school.ErrDuplicate},
		{name: "same code", student: school.Student{ID: "s3", Username: "bob", StudentCode: "STU-2026-001"}, wantErr: school.ErrDuplicate},
		{name: "ok", student: school.Student{ID: "s4", Username: "bob", StudentCode: "STU-2026-002"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Students().CreateStudent(ctx, tt.student)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
}

func TestStudentRepository_LatestCodeWithPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Open())
	now := time.Now()

	code, err := store.Students().LatestCodeWithPrefix(ctx, "STU-2026-")
	require.NoError(t, err)
	assert.Empty(t, code)

	for i, st := range []school.Student{
		{ID: "1", Username: "a", StudentCode: "STU-2026-002", CreatedAt: now},
		{ID: "2", Username: "b", StudentCode: "STU-2026-001", CreatedAt: now.Add(-time.Hour)},
		{ID: "3", Username: "c", StudentCode: "STU-2025-009", CreatedAt: now.Add(time.Hour)},
	} {
		_, err = store.Students().CreateStudent(ctx, st)
		require.NoError(t, err, i)
	}

	code, err = store.Students().LatestCodeWithPrefix(ctx, "STU-2026-")
	require.NoError(t, err)
	assert.Equal(t, "STU-2026-002", code)
}

func TestSequenceRepository_NextSequence(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Open())

	_, err := store.Students().CreateStudent(ctx, school.Student{ID: "1", Username: "a", StudentCode: "STU-2026-041"})
	require.NoError(t, err)

	var got []int
	for i := 0; i < 3; i++ {
		n, err := store.Sequences().NextSequence(ctx, "STU", 2026)
		require.NoError(t, err)
		got = append(got, n)
	}
	assert.Equal(t, []int{42, 43, 44}, got)

	n, err := store.Sequences().NextSequence(ctx, "STU", 2027)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// rolled back numbers are handed out again
	_ = store.WithinTx(ctx, func(tx school.Store) error {
		_, _ = tx.Sequences().NextSequence(ctx, "STU", 2027)
		return errors.New("rollback")
	})
	n, err = store.Sequences().NextSequence(ctx, "STU", 2027)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResolver_acrossStores(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Open())

	_, err := store.Teachers().CreateStaff(ctx, user.Identity{Username: "mrsmith", Email: "smith@school.test"})
	require.NoError(t, err)
	_, err = store.Parents().CreateParent(ctx, school.Parent{ID: "p1", Username: "bobsmith", Name: "Bob", Surname: "Smith", Phone: "0811111111"})
	require.NoError(t, err)

	resolver := school.NewResolver(store)
	ident, err := resolver.FindAny(ctx, user.NaturalKey{UsernameOrEmail: "smith@school.test"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, ident.Role)
	assert.NotEmpty(t, ident.ID)

	taken, err := resolver.Exists(ctx, user.NaturalKey{Phone: "0811111111"})
	require.NoError(t, err)
	assert.True(t, taken)
}
