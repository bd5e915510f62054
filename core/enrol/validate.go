package enrol

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/school"
)

var birthdayLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006"}

// Validator checks import rows, independently of any store.
type Validator struct {
	validate *validator.Validate
}

func NewValidator(validate *validator.Validate) *Validator {
	return &Validator{validate: validate}
}

type namedCell struct {
	name  string
	value string
}

// Validate returns the normalized row or the first reason it is unusable.
func (v *Validator) Validate(row ImportRow) (ValidatedRow, *RowError) {
	if row.malformed {
		return ValidatedRow{}, newRowError(KindStructural, "Malformed row: expected an object")
	}

	identity := []namedCell{
		{"username", row.Username.String()},
		{"name", row.Name.String()},
		{"surname", row.Surname.String()},
		{"address", row.Address.String()},
	}
	if missing := v.missing(identity); len(missing) > 0 {
		return ValidatedRow{}, newRowError(KindStructural, "Missing required fields: %s", strings.Join(missing, ", "))
	}

	details := []namedCell{
		{"bloodType", row.BloodType.String()},
		{"sex", row.Sex.String()},
		{"birthday", row.Birthday.String()},
		{"classId", row.ClassID.String()},
		{"gradeId", row.GradeID.String()},
	}
	if missing := v.missing(details); len(missing) > 0 {
		return ValidatedRow{}, newRowError(KindStructural, "Missing required student details: %s", strings.Join(missing, ", "))
	}

	vr := ValidatedRow{
		Username:      core.CleanString(row.Username.String(), true /* lower */),
		Password:      row.Password.String(),
		Name:          row.Name.String(),
		Surname:       row.Surname.String(),
		Email:         core.CleanString(row.Email.String(), true /* lower */),
		Phone:         row.Phone.String(),
		Address:       row.Address.String(),
		BloodType:     strings.ToUpper(row.BloodType.String()),
		Sex:           strings.ToUpper(row.Sex.String()),
		ParentName:    row.ParentName.String(),
		ParentSurname: row.ParentSurname.String(),
	}

	if v.validate.Var(vr.Username, "handle") != nil {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid username %q: only letters, digits, '.', '-' and '_' are allowed", row.Username.String())
	}
	if v.validate.Var(vr.Sex, "oneof="+strings.Join(school.Sexes, " ")) != nil {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid sex %q: must be one of %s", row.Sex.String(), strings.Join(school.Sexes, ", "))
	}
	if v.validate.Var(vr.BloodType, "oneof="+strings.Join(school.BloodTypes, " ")) != nil {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid bloodType %q: must be one of %s", row.BloodType.String(), strings.Join(school.BloodTypes, ", "))
	}
	if v.validate.Var(vr.Email, "omitempty,email") != nil {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid email %q", row.Email.String())
	}
	if (vr.ParentName == "") != (vr.ParentSurname == "") {
		return ValidatedRow{}, newRowError(KindStructural, "Both parentName and parentSurname are required to link a parent")
	}

	birthday, ok := parseBirthday(row.Birthday.String())
	if !ok {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid birthday %q", row.Birthday.String())
	}
	vr.Birthday = birthday

	if vr.ClassID, ok = v.parseID(row.ClassID.String()); !ok {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid classId %q", row.ClassID.String())
	}
	if vr.GradeID, ok = v.parseID(row.GradeID.String()); !ok {
		return ValidatedRow{}, newRowError(KindStructural, "Invalid gradeId %q", row.GradeID.String())
	}
	return vr, nil
}

func (v *Validator) missing(cells []namedCell) []string {
	var names []string
	for _, c := range cells {
		if v.validate.Var(c.value, "required") != nil {
			names = append(names, c.name)
		}
	}
	return names
}

func parseBirthday(s string) (time.Time, bool) {
	for _, layout := range birthdayLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.After(NowFunc()) {
			return time.Time{}, false
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// parseID accepts positive integers up to math.MaxInt32, also when written as integral floats ("3.0").
func (v *Validator) parseID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
			return 0, false
		}
		id = int(f)
	}
	// IDs are Postgres integers
	if id > math.MaxInt32 || v.validate.Var(id, "gt=0") != nil {
		return 0, false
	}
	return id, true
}
