package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID       bson.ObjectID `json:"id"       bson:"_id,omitempty"`
	Username string        `json:"username" bson:"username"`
	Email    string        `json:"email"    bson:"email"`
	// PasswordHash never crosses the API boundary.
	PasswordHash string    `json:"-"         bson:"password_hash"`
	Role         string    `json:"role"      bson:"role"`
	Bio          string    `json:"bio"       bson:"bio"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

func NewUser(username, email, passwordHash string) *User {
	return &User{
		ID:           bson.NewObjectID(),
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
}

// Caller is the resolved identity a request acts under. Handlers resolve it
// from the token once; services never see raw credentials.
type Caller struct {
	ID       bson.ObjectID
	Username string
	Role     string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

func (u *User) Caller() Caller {
	return Caller{ID: u.ID, Username: u.Username, Role: u.Role}
}
