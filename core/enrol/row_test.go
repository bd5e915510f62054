package enrol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportRow_UnmarshalJSON(t *testing.T) {
	data := `{
		"username": " jdoe ",
		"email": null,
		"classId": 3,
		"gradeId": 2.0,
		"birthday": "2012-03-04",
		"unknown": "ignored"
	}`

	var row ImportRow
	require.NoError(t, json.Unmarshal([]byte(data), &row))
	assert.Equal(t, "jdoe", row.Username.String())
	assert.Equal(t, "", row.Email.String())
	assert.Equal(t, "3", row.ClassID.String())
	assert.Equal(t, "2.0", row.GradeID.String())
	assert.Equal(t, "2012-03-04", row.Birthday.String())
	assert.Equal(t, "", row.Password.String())
}

func TestDecodeRow(t *testing.T) {
	tests := []struct {
		name          string
		data          string
		wantMalformed bool
		wantUsername  string
	}{
		{name: "object", data: `{"username": "jdoe", "classId": 1}`, wantUsername: "jdoe"},
		{name: "null", data: `null`},
		{name: "string", data: `"oops"`, wantMalformed: true},
		{name: "number", data: `42`, wantMalformed: true},
		{name: "array", data: `[{"username": "jdoe"}]`, wantMalformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := DecodeRow([]byte(tt.data))
			if row.malformed != tt.wantMalformed {
				t.Errorf("DecodeRow(%s).malformed = %v, want %v", tt.data, row.malformed, tt.wantMalformed)
			}
			assert.Equal(t, tt.wantUsername, row.Username.String())
		})
	}
}

func TestImportRow_Set(t *testing.T) {
	tests := []struct {
		column string
		want   bool
		get    func(r ImportRow) Cell
	}{
		{column: "username", want: true, get: func(r ImportRow) Cell { return r.Username }},
		{column: "Blood Type", want: true, get: func(r ImportRow) Cell { return r.BloodType }},
		{column: "parent_surname", want: true, get: func(r ImportRow) Cell { return r.ParentSurname }},
		{column: " CLASS-ID ", want: true, get: func(r ImportRow) Cell { return r.ClassID }},
		{column: "nickname", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			var row ImportRow
			if got := row.Set(tt.column, "value"); got != tt.want {
				t.Errorf("Set(%q) = %v, want %v", tt.column, got, tt.want)
			}
			if tt.get != nil {
				assert.Equal(t, Cell("value"), tt.get(row))
			}
		})
	}
}
