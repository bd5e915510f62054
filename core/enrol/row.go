package enrol

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

var NowFunc = time.Now // mockable

// Cell is one raw dataset value. JSON strings are unquoted, null is empty,
// and any other JSON value keeps its literal text.
type Cell string

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cell(s)
	default:
		*c = Cell(data)
	}
	return nil
}

func (c Cell) String() string {
	return strings.TrimSpace(string(c))
}

// ImportRow is one untyped record of an uploaded dataset.
type ImportRow struct {
	Username      Cell `json:"username"`
	Password      Cell `json:"password"`
	Name          Cell `json:"name"`
	Surname       Cell `json:"surname"`
	Email         Cell `json:"email"`
	Phone         Cell `json:"phone"`
	Address       Cell `json:"address"`
	BloodType     Cell `json:"bloodType"`
	Sex           Cell `json:"sex"`
	Birthday      Cell `json:"birthday"`
	ParentName    Cell `json:"parentName"`
	ParentSurname Cell `json:"parentSurname"`
	ClassID       Cell `json:"classId"`
	GradeID       Cell `json:"gradeId"`

	malformed bool // the dataset element was not an object
}

// DecodeRow decodes one JSON dataset element. An element that is not an object
// still yields a row, one that fails validation, so the batch keeps its numbering.
func DecodeRow(data []byte) ImportRow {
	var row ImportRow
	if err := json.Unmarshal(data, &row); err != nil {
		return ImportRow{malformed: true}
	}
	return row
}

// columns maps the dataset column names to the fields of r.
func (r *ImportRow) columns() map[string]*Cell {
	return map[string]*Cell{
		"username":      &r.Username,
		"password":      &r.Password,
		"name":          &r.Name,
		"surname":       &r.Surname,
		"email":         &r.Email,
		"phone":         &r.Phone,
		"address":       &r.Address,
		"bloodtype":     &r.BloodType,
		"sex":           &r.Sex,
		"birthday":      &r.Birthday,
		"parentname":    &r.ParentName,
		"parentsurname": &r.ParentSurname,
		"classid":       &r.ClassID,
		"gradeid":       &r.GradeID,
	}
}

// Set assigns value to the field named column (case and separator insensitive).
// It reports whether column names a field.
func (r *ImportRow) Set(column, value string) bool {
	cell, ok := r.columns()[normalizeColumn(column)]
	if ok {
		*cell = Cell(value)
	}
	return ok
}

func normalizeColumn(column string) string {
	column = strings.ToLower(strings.TrimSpace(column))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(column)
}

// ValidatedRow is an ImportRow that passed every structural check.
type ValidatedRow struct {
	Username      string
	Password      string
	Name          string
	Surname       string
	Email         string
	Phone         string
	Address       string
	BloodType     string
	Sex           string
	Birthday      time.Time
	ParentName    string
	ParentSurname string
	ClassID       int
	GradeID       int
}

func (r ValidatedRow) HasParent() bool {
	return r.ParentName != "" || r.ParentSurname != ""
}
