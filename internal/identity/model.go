package identity

import (
	"strings"
	"time"
)

// User is the account holder as seen by the wallet service. Registration and
// credentials live with the account service; only display data is read here.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	WalletID  string
	CreatedAt time.Time
}

// FullName joins first and last name the way narrations show it.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
