package enrol

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
	"github.com/trezcool/campus/core/user"
)

// Orchestrator imports batches of student rows.
type Orchestrator struct {
	store     school.Store
	allocator Allocator
	validator *Validator
	logger    core.Logger
	conf      core.EnrolConfig
	hash      func(pwd string) ([]byte, error)
}

func NewOrchestrator(
	store school.Store,
	allocator Allocator,
	validate *validator.Validate,
	logger core.Logger,
	conf core.EnrolConfig,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		allocator: allocator,
		validator: NewValidator(validate),
		logger:    logger,
		conf:      conf,
		hash:      user.HashPassword,
	}
}

// batch holds the state shared by the rows of one Import call.
type batch struct {
	id        string
	guardians map[guardianKey]string // parent IDs, committed rows only
}

// Import attempts every row, in order, and reports the outcome of each.
// A row failure never aborts the batch, and a committed row is never rolled back.
func (o *Orchestrator) Import(ctx context.Context, rows []ImportRow) BatchResult {
	res := newBatchResult()
	b := &batch{id: uuid.New().String(), guardians: make(map[guardianKey]string)}
	start := time.Now()

	for i, row := range rows {
		if ctx.Err() != nil {
			for j := i; j < len(rows); j++ {
				res.fail(rowNumber(j), &RowError{Kind: KindCancelled, Message: msgCancelled})
			}
			break
		}
		if rerr := o.importRow(ctx, b, rowNumber(i), row); rerr != nil {
			res.fail(rowNumber(i), rerr)
			continue
		}
		res.Successful++
	}

	o.logger.Info(fmt.Sprintf(
		"import %s: %d rows, %d successful, %d failed in %s",
		b.id, len(rows), res.Successful, res.Failed, time.Since(start),
	))
	return res
}

func (o *Orchestrator) importRow(ctx context.Context, b *batch, num int, row ImportRow) (rerr *RowError) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error(fmt.Sprintf("import %s: row %d panicked: %v", b.id, num, r))
			rerr = &RowError{Kind: KindUnexpected, Message: msgUnexpected}
		}
	}()

	vr, rerr := o.validator.Validate(row)
	if rerr != nil {
		return rerr
	}
	conflict, err := o.checkUniqueness(ctx, vr)
	if err != nil {
		return o.unexpected(b, num, err)
	}
	if conflict != nil {
		return conflict
	}

	var (
		parentID    string
		parentIsNew bool
		studentCode string
	)
	err = o.store.WithinTx(ctx, func(tx school.Store) error {
		var err error
		if vr.HasParent() {
			if parentID, parentIsNew, err = o.resolveGuardian(ctx, tx, b, vr); err != nil {
				return err
			}
		}
		if err = o.verifyForeignKeys(ctx, tx, vr); err != nil {
			return err
		}
		studentCode, err = o.createStudent(ctx, tx, vr, parentID)
		return err
	})
	if err != nil {
		var re *RowError
		if errors.As(err, &re) {
			return re
		}
		return o.unexpected(b, num, err)
	}

	if vr.HasParent() {
		b.guardians[guardianKey{name: vr.ParentName, surname: vr.ParentSurname}] = parentID
	}
	o.logger.Debug(fmt.Sprintf("import %s: row %d -> %s (new parent: %t)", b.id, num, studentCode, parentIsNew))
	return nil
}

func (o *Orchestrator) unexpected(b *batch, num int, err error) *RowError {
	o.logger.Error(fmt.Sprintf("import %s: row %d", b.id, num), err)
	return &RowError{Kind: KindUnexpected, Message: msgUnexpected}
}

// checkUniqueness returns a conflict when the student username, or the
// email or phone of the row, is already used.
func (o *Orchestrator) checkUniqueness(ctx context.Context, vr ValidatedRow) (*RowError, error) {
	resolver := school.NewResolver(o.store)

	taken, err := resolver.Exists(ctx, user.NaturalKey{Username: vr.Username}, user.RoleStudent)
	if err != nil {
		return nil, errors.Wrap(err, "checking username")
	}
	if taken {
		return newRowError(KindConflict, "Username %q already exists", vr.Username), nil
	}

	if vr.Email != "" {
		if taken, err = resolver.Exists(ctx, user.NaturalKey{Email: vr.Email}); err != nil {
			return nil, errors.Wrap(err, "checking email")
		}
		if taken {
			return newRowError(KindConflict, "Email %q already exists", vr.Email), nil
		}
	}

	if vr.Phone != "" {
		if taken, err = resolver.Exists(ctx, user.NaturalKey{Phone: vr.Phone}); err != nil {
			return nil, errors.Wrap(err, "checking phone")
		}
		if taken {
			return newRowError(KindConflict, "Phone %q already exists", vr.Phone), nil
		}
	}
	return nil, nil
}

func (o *Orchestrator) verifyForeignKeys(ctx context.Context, tx school.Store, vr ValidatedRow) error {
	ok, err := tx.Classes().ClassExists(ctx, vr.ClassID)
	if err != nil {
		return errors.Wrap(err, "checking class")
	}
	if !ok {
		return newRowError(KindReferential, "Class %d not found", vr.ClassID)
	}

	if ok, err = tx.Classes().GradeExists(ctx, vr.GradeID); err != nil {
		return errors.Wrap(err, "checking grade")
	}
	if !ok {
		return newRowError(KindReferential, "Grade %d not found", vr.GradeID)
	}
	return nil
}

func (o *Orchestrator) createStudent(ctx context.Context, tx school.Store, vr ValidatedRow, parentID string) (string, error) {
	now := NowFunc().UTC()
	n, err := o.allocator.Allocate(ctx, tx, o.conf.StudentCodePrefix, now.Year())
	if err != nil {
		return "", err
	}

	pwd := vr.Password
	if pwd == "" {
		pwd = o.conf.DefaultPassword
	}
	hash, err := o.hash(pwd)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}

	student, err := tx.Students().CreateStudent(ctx, school.Student{
		ID:           uuid.New().String(),
		Username:     vr.Username,
		Email:        null.NewString(vr.Email, vr.Email != ""),
		Phone:        null.NewString(vr.Phone, vr.Phone != ""),
		Name:         vr.Name,
		Surname:      vr.Surname,
		Address:      vr.Address,
		BloodType:    vr.BloodType,
		Sex:          vr.Sex,
		Birthday:     vr.Birthday,
		ParentID:     null.NewString(parentID, parentID != ""),
		ClassID:      vr.ClassID,
		GradeID:      vr.GradeID,
		StudentCode:  school.FormatCode(o.conf.StudentCodePrefix, now.Year(), n),
		PasswordHash: hash,
		CreatedAt:    now,
	})
	if err != nil {
		return "", errors.Wrap(err, "creating student")
	}
	return student.StudentCode, nil
}
