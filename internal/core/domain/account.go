package domain

import "time"

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusBanned   AccountStatus = "banned"
)

// Account is the identity aggregate behind a session subject.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	Status      AccountStatus
	Roles       []string
	CreatedAt   time.Time
}

// IsActive reports whether the account may authenticate.
func (a Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
