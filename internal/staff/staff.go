package staff

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("staff member not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrEmailTaken     = errors.New("email already in use")
	ErrBadCredentials = errors.New("invalid username or password")
)

// Member mirrors one row of the dvdrental staff table.
type Member struct {
	ID         int32     `json:"staff_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	AddressID  int32     `json:"address_id"`
	StoreID    int32     `json:"store_id"`
	Active     bool      `json:"active"`
	LastUpdate time.Time `json:"last_update"`
}

type RegisterParams struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Email     string
	AddressID int32
	StoreID   int32
}

// UpdateParams carries optional field changes. Nil fields stay untouched.
type UpdateParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Username  *string
	AddressID *int32
	StoreID   *int32
	Active    *bool
}
