package enrol

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

var testNow = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

type logRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (l *logRecorder) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+": "+msg)
}

func (l *logRecorder) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *logRecorder) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *logRecorder) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *logRecorder) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *logRecorder) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

func (l *logRecorder) count(level string) (n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if len(e) > len(level) && e[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

type allocatorFunc func(ctx context.Context, tx school.Store, prefix string, year int) (int, error)

func (f allocatorFunc) Allocate(ctx context.Context, tx school.Store, prefix string, year int) (int, error) {
	return f(ctx, tx, prefix, year)
}

type fixture struct {
	store  *inmemdb.Store
	logger *logRecorder
}

func setup(t *testing.T) fixture {
	NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { NowFunc = time.Now })

	store := inmemdb.NewStore(inmemdb.Open())
	ctx := context.Background()
	_, err := store.Classes().CreateClass(ctx, school.Class{Name: "6A"})
	require.NoError(t, err)
	_, err = store.Classes().CreateGrade(ctx, school.Grade{Name: "Grade 6"})
	require.NoError(t, err)
	return fixture{store: store, logger: new(logRecorder)}
}

func (f fixture) orchestrator(allocator Allocator) *Orchestrator {
	o := NewOrchestrator(
		f.store,
		allocator,
		core.NewValidator(core.NewTranslator()),
		f.logger,
		core.EnrolConfig{DefaultPassword: "Welcome@123", StudentCodePrefix: "STU"},
	)
	o.hash = func(pwd string) ([]byte, error) { return []byte("hashed:" + pwd), nil }
	return o
}

func validRow(username string) ImportRow {
	return ImportRow{
		Username:  Cell(username),
		Name:      "John",
		Surname:   "Doe",
		Address:   "1 Main St",
		BloodType: "O+",
		Sex:       "MALE",
		Birthday:  "2012-03-04",
		ClassID:   "1",
		GradeID:   "1",
	}
}

func withParent(row ImportRow, name, surname string) ImportRow {
	row.ParentName = Cell(name)
	row.ParentSurname = Cell(surname)
	return row
}

func usernames(n int) []ImportRow {
	rows := make([]ImportRow, n)
	for i := range rows {
		rows[i] = validRow(fmt.Sprintf("student%d", i+1))
	}
	return rows
}
