package models

import "time"

// User is the profile document keyed by the identity provider id.
type User struct {
	ID       string    `db:"id" json:"id" bson:"_id"`
	Name     string    `db:"name" json:"name" bson:"name"`
	Avatar   string    `db:"avatar" json:"avatar" bson:"avatar"`
	Email    string    `db:"email" json:"email" bson:"email"`
	LastSeen time.Time `db:"last_seen" json:"last_seen" bson:"last_seen"`
	Online   bool      `db:"online" json:"online" bson:"online"`
}

// UserQuery pages through users ordered by id.
type UserQuery struct {
	ExcludeID string
	After     string
	Limit     int
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users []User `json:"users"`
	Next  string `json:"next,omitempty"`
}

// Account is the identity provider's credential record.
type Account struct {
	ID           string    `db:"id" bson:"_id"`
	Email        string    `db:"email" bson:"email"`
	PasswordHash string    `db:"password_hash" bson:"password_hash"`
	Provider     string    `db:"provider" bson:"provider"`
	DisplayName  string    `db:"display_name" bson:"display_name"`
	PhotoURL     string    `db:"photo_url" bson:"photo_url"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at"`
}

// Identity is a signed-in principal as reported by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Provider    string `json:"provider"`
	Token       string `json:"token"`
}
