package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Roles 以 JSON 存为单列，避免为一个小集合建关联表
type Roles []string

func (r Roles) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *Roles) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("roles: cannot scan %T", src)
	}
}

func (r Roles) Has(role string) bool {
	for _, v := range r {
		if v == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Firstname    string    `gorm:"size:64" json:"firstname" validate:"max=64"`
	Lastname     string    `gorm:"size:64" json:"lastname" validate:"max=64"`
	Email        string    `gorm:"uniqueIndex;size:191" json:"email" validate:"required,email"`
	PasswordHash string    `gorm:"size:191" json:"-" validate:"required"`
	Roles        Roles     `gorm:"type:varchar(255)" json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// UserView 对外视图，永远不含密码
type UserView struct {
	ID        string `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Roles     Roles  `json:"roles"`
}

// ProfileView 自查视图，按现有行为不含 roles
type ProfileView struct {
	ID        string `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

func (u *User) View() *UserView {
	roles := u.Roles
	if roles == nil {
		roles = Roles{}
	}
	return &UserView{ID: u.ID, Firstname: u.Firstname, Lastname: u.Lastname, Email: u.Email, Roles: roles}
}

func (u *User) Profile() *ProfileView {
	return &ProfileView{ID: u.ID, Firstname: u.Firstname, Lastname: u.Lastname, Email: u.Email}
}

// Identity 请求内的已认证身份，由 JWT 中间件显式传入
type Identity struct {
	ID    string
	Roles Roles
}

func (i Identity) IsAdmin() bool { return i.Roles.Has(RoleAdmin) }

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, u *User) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

var (
	ErrBadRequest         = errors.New("invalid request payload")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError 字段路径 -> 可读消息列表
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string { return "validation failed" }
