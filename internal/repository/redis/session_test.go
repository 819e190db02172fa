package redis

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, server
}

func testSession(duration time.Duration, issuedAt time.Time) domain.Session {
	session := domain.Session{
		ID:       "id-abcdef",
		Token:    "token-123456",
		Subject:  "account-1",
		IssuedAt: issuedAt,
		Duration: duration,
		Roles:    []string{"ADMIN", "CLIENT"},
		IP:       "203.0.113.7",
	}
	if duration > 0 {
		expiresAt := issuedAt.Add(duration)
		session.ExpiresAt = &expiresAt
	}
	return session
}

func TestSessionRepository_PutResolvesOnBothIndexes(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	now := time.Now().UTC().Truncate(time.Second)
	session := testSession(time.Hour, now)

	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	byID, err := repo.GetByID(context.Background(), session.Subject, session.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	byToken, err := repo.GetByToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("GetByToken returned error: %v", err)
	}

	if !reflect.DeepEqual(byID, byToken) {
		t.Fatalf("index results diverge: byID=%+v byToken=%+v", byID, byToken)
	}
	if byID.Token != session.Token || byID.Subject != session.Subject {
		t.Fatalf("unexpected record: %+v", byID)
	}
	if !byID.HasAnyRole("ADMIN") {
		t.Fatalf("expected role snapshot to survive the round trip")
	}
}

func TestSessionRepository_PutAppliesTTLOnBothKeys(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	session := testSession(time.Hour, time.Now().UTC())
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	sessionKey := repo.sessionKey(session.Subject, session.ID)
	tokenKey := repo.tokenKey(session.Token)
	if ttl := server.TTL(sessionKey); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected session key TTL: %v", ttl)
	}
	if ttl := server.TTL(tokenKey); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected token key TTL: %v", ttl)
	}
}

func TestSessionRepository_NoExpirySessionHasNoTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	session := testSession(0, time.Now().UTC())
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if ttl := server.TTL(repo.sessionKey(session.Subject, session.ID)); ttl != 0 {
		t.Fatalf("expected no TTL on non-expiring session, got %v", ttl)
	}

	if _, err := repo.GetByToken(context.Background(), session.Token); err != nil {
		t.Fatalf("GetByToken returned error: %v", err)
	}
}

func TestSessionRepository_LogicalExpiryBeforeTTLFires(t *testing.T) {
	client, _ := newTestRedis(t)

	current := time.Now().UTC()
	repo := NewSessionRepository(client, SessionStoreConfig{}).
		WithClock(func() time.Time { return current })

	session := testSession(time.Second, current)
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if _, err := repo.GetByID(context.Background(), session.Subject, session.ID); err != nil {
		t.Fatalf("expected session retrievable before expiry: %v", err)
	}

	// Advance the logical clock past expiry without letting miniredis reap
	// the keys; lookups must still treat the record as absent.
	current = current.Add(2 * time.Second)

	if _, err := repo.GetByID(context.Background(), session.Subject, session.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logical expiry, got %v", err)
	}
	if _, err := repo.GetByToken(context.Background(), session.Token); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound via token after logical expiry, got %v", err)
	}
}

func TestSessionRepository_DeleteIsIdempotent(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	session := testSession(time.Hour, time.Now().UTC())
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	removed, err := repo.Delete(context.Background(), session)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !removed {
		t.Fatalf("expected first delete to remove the record")
	}

	removed, err = repo.Delete(context.Background(), session)
	if err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
	if removed {
		t.Fatalf("expected second delete to report nothing removed")
	}

	if _, err := repo.GetByID(context.Background(), session.Subject, session.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := repo.GetByToken(context.Background(), session.Token); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound via token after delete, got %v", err)
	}
}

func TestSessionRepository_DanglingTokenRedirect(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	session := testSession(time.Hour, time.Now().UTC())
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	// Simulate the record entry vanishing out from under the redirect.
	server.Del(repo.sessionKey(session.Subject, session.ID))

	if _, err := repo.GetByToken(context.Background(), session.Token); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for dangling redirect, got %v", err)
	}
}

func TestSessionRepository_RefreshExtendsExpiry(t *testing.T) {
	client, server := newTestRedis(t)

	current := time.Now().UTC().Truncate(time.Second)
	repo := NewSessionRepository(client, SessionStoreConfig{}).
		WithClock(func() time.Time { return current })

	session := testSession(time.Minute, current)
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	current = current.Add(30 * time.Second)

	refreshed, err := repo.Refresh(context.Background(), session, time.Hour)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if refreshed.ID != session.ID || refreshed.Token != session.Token {
		t.Fatalf("refresh must preserve credentials, got %+v", refreshed)
	}
	if !reflect.DeepEqual(refreshed.Roles, session.Roles) {
		t.Fatalf("refresh must preserve the role snapshot")
	}

	wantExpiry := current.Add(time.Hour)
	if refreshed.ExpiresAt == nil || !refreshed.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, refreshed.ExpiresAt)
	}

	if ttl := server.TTL(repo.tokenKey(session.Token)); ttl != time.Hour {
		t.Fatalf("expected token key TTL reset to 1h, got %v", ttl)
	}

	stored, err := repo.GetByToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("GetByToken after refresh returned error: %v", err)
	}
	if !stored.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("stored expiry %v does not reflect refresh", stored.ExpiresAt)
	}
}

func TestSessionRepository_RefreshNoopWithoutExpiry(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	session := testSession(0, time.Now().UTC())
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	refreshed, err := repo.Refresh(context.Background(), session, time.Hour)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if refreshed.ExpiresAt != nil {
		t.Fatalf("non-expiring session must not gain an expiry, got %v", refreshed.ExpiresAt)
	}
	if refreshed.Duration != 0 {
		t.Fatalf("expected duration to stay zero, got %v", refreshed.Duration)
	}
}

func TestSessionRepository_RefreshExpiredRecord(t *testing.T) {
	client, _ := newTestRedis(t)

	current := time.Now().UTC()
	repo := NewSessionRepository(client, SessionStoreConfig{}).
		WithClock(func() time.Time { return current })

	session := testSession(time.Second, current)
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	current = current.Add(5 * time.Second)

	if _, err := repo.Refresh(context.Background(), session, time.Hour); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when refreshing an expired record, got %v", err)
	}
}

func TestSessionRepository_UnavailableStore(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{Timeout: 200 * time.Millisecond})

	session := testSession(time.Hour, time.Now().UTC())
	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	server.Close()

	_, err := repo.GetByID(context.Background(), session.Subject, session.ID)
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after store outage, got %v", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("outage must never be reported as not-found")
	}
}

func TestSessionRepository_PutValidation(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, SessionStoreConfig{})

	session := testSession(time.Hour, time.Now().UTC())
	session.Token = ""
	if err := repo.Put(context.Background(), session); err == nil {
		t.Fatalf("expected error for session without token")
	}

	session = testSession(time.Hour, time.Now().UTC())
	session.Subject = ""
	if err := repo.Put(context.Background(), session); err == nil {
		t.Fatalf("expected error for session without subject")
	}
}
