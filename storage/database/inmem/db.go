package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

type (
	// DB holds every table in memory. Transactions work on a copy of the
	// tables, swapped in on commit.
	DB struct {
		mutex  sync.RWMutex
		tables *tables
	}

	tables struct {
		admins    []user.Identity
		teachers  []user.Identity
		students  []school.Student
		parents   []school.Parent
		classes   []school.Class
		grades    []school.Grade
		sequences map[seqKey]int
	}

	seqKey struct {
		prefix string
		year   int
	}
)

func Open() *DB {
	return &DB{tables: &tables{sequences: make(map[seqKey]int)}}
}

func (t *tables) clone() *tables {
	c := &tables{
		admins:    append([]user.Identity(nil), t.admins...),
		teachers:  append([]user.Identity(nil), t.teachers...),
		students:  append([]school.Student(nil), t.students...),
		parents:   append([]school.Parent(nil), t.parents...),
		classes:   append([]school.Class(nil), t.classes...),
		grades:    append([]school.Grade(nil), t.grades...),
		sequences: make(map[seqKey]int, len(t.sequences)),
	}
	for k, v := range t.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store is the in-memory implementation of school.Store.
type Store struct {
	db *DB
	tx *tables // set within a transaction; the DB is then write-locked
}

var _ school.Store = (*Store)(nil) // interface compliance check

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) read(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()
	return fn(s.db.tables)
}

func (s *Store) write(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()
	return fn(s.db.tables)
}

// WithinTx serializes transactions; a nested call joins the current one.
func (s *Store) WithinTx(_ context.Context, fn func(tx school.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	tx := &Store{db: s.db, tx: s.db.tables.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.db.tables = tx.tx
	return nil
}

func (s *Store) Admins() school.StaffRepository {
	return &staffRepository{s: s, role: user.RoleAdmin}
}

func (s *Store) Teachers() school.StaffRepository {
	return &staffRepository{s: s, role: user.RoleTeacher}
}

func (s *Store) Students() school.StudentRepository {
	return &studentRepository{s: s}
}

func (s *Store) Parents() school.ParentRepository {
	return &parentRepository{s: s}
}

func (s *Store) Classes() school.ClassRepository {
	return &classRepository{s: s}
}

func (s *Store) Sequences() school.SequenceRepository {
	return &sequenceRepository{s: s}
}

// matches reports whether ident is the one key identifies; the first non-empty field wins.
func matches(ident user.Identity, key user.NaturalKey) (bool, error) {
	switch {
	case key.ID != "":
		return ident.ID == key.ID, nil
	case key.Username != "":
		return ident.Username == key.Username, nil
	case key.Email != "":
		return ident.Email == key.Email, nil
	case key.Phone != "":
		return ident.Phone == key.Phone, nil
	case key.UsernameOrEmail != "":
		return ident.Username == key.UsernameOrEmail || ident.Email == key.UsernameOrEmail, nil
	}
	return false, user.ErrEmptyKey
}

// conflicts reports whether a and b share a unique column.
func conflicts(a, b user.Identity) bool {
	return a.ID == b.ID ||
		a.Username == b.Username ||
		(a.Email != "" && a.Email == b.Email) ||
		(a.Phone != "" && a.Phone == b.Phone)
}
