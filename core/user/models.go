package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campus/core"
)

type Role string

// Roles; each one is stored in its own partition (table).
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

var (
	rolePriorities = map[Role]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleStudent: 10,
		RoleParent:  5,
	}

	// PasswordCost is the bcrypt cost used by HashPassword.
	PasswordCost = bcrypt.DefaultCost
)

func RolePriority(role Role) int {
	return rolePriorities[role]
}

func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func ParseRole(s string) (Role, bool) {
	role := Role(core.CleanString(s, true /* lower */))
	return role, role.IsValid()
}

// Identity is the login-relevant view of any role-partitioned entity.
type Identity struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (i Identity) FullName() string {
	return i.Name + " " + i.Surname
}

func (i *Identity) SetPassword(pwd string) error {
	hash, err := HashPassword(pwd)
	if err != nil {
		return err
	}
	i.PasswordHash = hash
	return nil
}

func (i *Identity) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(i.PasswordHash, []byte(pwd))
}

// HashPassword hashes pwd with PasswordCost.
func HashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), PasswordCost)
}

// NaturalKey identifies an entity without knowing its internal ID.
// The first non-empty field wins, in declaration order.
type NaturalKey struct {
	ID              string
	Username        string
	Email           string
	Phone           string
	UsernameOrEmail string
}

func (k NaturalKey) IsEmpty() bool {
	return k.ID == "" && k.Username == "" && k.Email == "" && k.Phone == "" && k.UsernameOrEmail == ""
}

// Clean normalizes the key the way values are stored.
func (k NaturalKey) Clean() NaturalKey {
	return NaturalKey{
		ID:              core.CleanString(k.ID),
		Username:        core.CleanString(k.Username, true /* lower */),
		Email:           core.CleanString(k.Email, true /* lower */),
		Phone:           core.CleanString(k.Phone),
		UsernameOrEmail: core.CleanString(k.UsernameOrEmail, true /* lower */),
	}
}

type ResetPassword struct {
	Role            Role   `json:"role,omitempty"`
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}
