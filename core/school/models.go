package school

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/user"
)

// Sexes
const (
	SexMale   = "MALE"
	SexFemale = "FEMALE"
)

var (
	Sexes      = []string{SexMale, SexFemale}
	BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
)

type (
	Student struct {
		ID           string      `json:"id"`
		Username     string      `json:"username"`
		Email        null.String `json:"email"`
		Phone        null.String `json:"phone"`
		Name         string      `json:"name"`
		Surname      string      `json:"surname"`
		Address      string      `json:"address"`
		BloodType    string      `json:"blood_type"`
		Sex          string      `json:"sex"`
		Birthday     time.Time   `json:"birthday"`
		ParentID     null.String `json:"parent_id"`
		ClassID      int         `json:"class_id"`
		GradeID      int         `json:"grade_id"`
		StudentCode  string      `json:"student_code"`
		PasswordHash []byte      `json:"-"`
		CreatedAt    time.Time   `json:"created_at"` // UTC
	}

	Parent struct {
		ID           string      `json:"id"`
		Username     string      `json:"username"`
		Name         string      `json:"name"`
		Surname      string      `json:"surname"`
		Email        null.String `json:"email"`
		Phone        string      `json:"phone"`
		Address      string      `json:"address"`
		PasswordHash []byte      `json:"-"`
		CreatedAt    time.Time   `json:"created_at"` // UTC
	}

	Class struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	Grade struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
)

func (s Student) Identity() user.Identity {
	return user.Identity{
		ID:           s.ID,
		Role:         user.RoleStudent,
		Username:     s.Username,
		Email:        s.Email.String,
		Phone:        s.Phone.String,
		Name:         s.Name,
		Surname:      s.Surname,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
	}
}

func (p Parent) Identity() user.Identity {
	return user.Identity{
		ID:           p.ID,
		Role:         user.RoleParent,
		Username:     p.Username,
		Email:        p.Email.String,
		Phone:        p.Phone,
		Name:         p.Name,
		Surname:      p.Surname,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt,
	}
}

func (p Parent) FullName() string {
	return p.Name + " " + p.Surname
}
