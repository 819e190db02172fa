package domain

import "time"

// SessionStartedEvent captures the issuance of a new session.
type SessionStartedEvent struct {
	SessionID string
	Subject   string
	IP        string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// SessionRefreshedEvent captures a sliding-expiration extension.
type SessionRefreshedEvent struct {
	SessionID   string
	Subject     string
	RefreshedAt time.Time
	ExpiresAt   *time.Time
}

// SessionRevokedEvent captures an explicit revocation.
type SessionRevokedEvent struct {
	SessionID string
	Subject   string
	RevokedAt time.Time
	Reason    string
}
