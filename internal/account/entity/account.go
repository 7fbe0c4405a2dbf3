package entity

import "time"

// Account represents a row in the `users` table. Password always holds a
// bcrypt hash.
type Account struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AccountPublic is the representation returned to clients.
type AccountPublic struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public strips the password hash and timestamps.
func (a *Account) Public() AccountPublic {
	return AccountPublic{ID: a.ID, Username: a.Username, Email: a.Email}
}
