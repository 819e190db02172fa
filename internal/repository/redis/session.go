package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/repository"
)

const (
	defaultSessionPrefix = "clientdesk:sessions"
	defaultTokenPrefix   = "clientdesk:session_tokens"
	defaultOpTimeout     = 3 * time.Second
)

// Both index entries for one record must move together. The scripts below are
// the only write paths, so a reader can never observe the id key without the
// token key being resolvable, or vice versa.
const putSessionScript = `
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
  redis.call("PEXPIRE", KEYS[2], ttl)
else
  redis.call("PERSIST", KEYS[1])
  redis.call("PERSIST", KEYS[2])
end
return 1
`

const deleteSessionScript = `
local removed = redis.call("DEL", KEYS[1])
redis.call("DEL", KEYS[2])
return removed
`

var (
	putSessionLua    = red.NewScript(putSessionScript)
	deleteSessionLua = red.NewScript(deleteSessionScript)
)

// SessionStoreConfig tunes key prefixes and the per-operation timeout.
type SessionStoreConfig struct {
	SessionPrefix string
	TokenPrefix   string
	Timeout       time.Duration
}

// SessionRepository stores session records in Redis under two keyspaces:
// a record entry addressed by (subject, id) and a redirect entry addressed by
// the opaque bearer token.
type SessionRepository struct {
	client *red.Client
	cfg    SessionStoreConfig
	now    func() time.Time
}

// NewSessionRepository wires a Redis client into a dual-index session store.
func NewSessionRepository(client *red.Client, cfg SessionStoreConfig) *SessionRepository {
	if strings.TrimSpace(cfg.SessionPrefix) == "" {
		cfg.SessionPrefix = defaultSessionPrefix
	}
	if strings.TrimSpace(cfg.TokenPrefix) == "" {
		cfg.TokenPrefix = defaultTokenPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpTimeout
	}

	repo := &SessionRepository{client: client, cfg: cfg}
	repo.now = func() time.Time { return time.Now().UTC() }
	return repo
}

// WithClock overrides the internal clock for deterministic tests.
func (r *SessionRepository) WithClock(clock func() time.Time) *SessionRepository {
	if clock != nil {
		r.now = clock
	}
	return r
}

type sessionBlob struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	Subject   string     `json:"subject"`
	IssuedAt  time.Time  `json:"issued_at"`
	Duration  int64      `json:"duration_seconds"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Roles     []string   `json:"roles"`
	IP        string     `json:"ip,omitempty"`
}

func encodeSession(session domain.Session) ([]byte, error) {
	blob := sessionBlob{
		ID:        session.ID,
		Token:     session.Token,
		Subject:   session.Subject,
		IssuedAt:  session.IssuedAt.UTC(),
		Duration:  int64(session.Duration / time.Second),
		ExpiresAt: session.ExpiresAt,
		Roles:     session.Roles,
		IP:        session.IP,
	}
	return json.Marshal(blob)
}

func decodeSession(data []byte) (*domain.Session, error) {
	var blob sessionBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode session blob: %w", err)
	}

	session := domain.Session{
		ID:        blob.ID,
		Token:     blob.Token,
		Subject:   blob.Subject,
		IssuedAt:  blob.IssuedAt,
		Duration:  time.Duration(blob.Duration) * time.Second,
		ExpiresAt: blob.ExpiresAt,
		Roles:     blob.Roles,
		IP:        blob.IP,
	}
	return &session, nil
}

// Put persists a new record under both keys. TTLs are applied when the record
// carries a finite duration; otherwise both keys persist until revocation.
func (r *SessionRepository) Put(ctx context.Context, session domain.Session) error {
	if err := validateSession(session); err != nil {
		return err
	}

	payload, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()

	keys := []string{r.sessionKey(session.Subject, session.ID), r.tokenKey(session.Token)}
	args := []any{payload, r.redirectValue(session), session.Duration.Milliseconds()}
	if err := putSessionLua.Run(ctx, r.client, keys, args...).Err(); err != nil {
		return r.unavailable("put session", err)
	}

	return nil
}

// GetByID resolves via the (subject, id) index and applies the logical-expiry
// check regardless of whether the native TTL has fired yet.
func (r *SessionRepository) GetByID(ctx context.Context, subject, id string) (*domain.Session, error) {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(id) == "" {
		return nil, repository.ErrNotFound
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, r.sessionKey(subject, id)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, r.unavailable("get session by id", err)
	}

	session, err := decodeSession(data)
	if err != nil {
		return nil, err
	}

	if session.HasExpired(r.now()) {
		return nil, repository.ErrNotFound
	}

	return session, nil
}

// GetByToken resolves the token redirect and delegates to GetByID. A token
// pointing at a since-deleted record resolves to ErrNotFound.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, repository.ErrNotFound
	}

	lookupCtx, cancel := r.opContext(ctx)
	defer cancel()

	redirect, err := r.client.Get(lookupCtx, r.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, r.unavailable("get session by token", err)
	}

	subject, id, ok := strings.Cut(redirect, ":")
	if !ok || subject == "" || id == "" {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, subject, id)
}

// Delete removes both index entries. Deleting an already-deleted record
// reports false rather than failing.
func (r *SessionRepository) Delete(ctx context.Context, session domain.Session) (bool, error) {
	if err := validateSession(session); err != nil {
		return false, err
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()

	keys := []string{r.sessionKey(session.Subject, session.ID), r.tokenKey(session.Token)}
	removed, err := deleteSessionLua.Run(ctx, r.client, keys).Int64()
	if err != nil {
		return false, r.unavailable("delete session", err)
	}

	return removed > 0, nil
}

// Refresh re-persists the record under the same keys with a recomputed expiry
// and reset TTLs. Records issued without an expiration cannot be refreshed
// into having one; the call is a no-op returning the record unchanged.
func (r *SessionRepository) Refresh(ctx context.Context, session domain.Session, newDuration time.Duration) (*domain.Session, error) {
	if err := validateSession(session); err != nil {
		return nil, err
	}
	if !session.Expires() {
		unchanged := session
		return &unchanged, nil
	}
	if newDuration <= 0 {
		return nil, fmt.Errorf("new duration must be positive")
	}

	now := r.now()
	if session.HasExpired(now) {
		return nil, repository.ErrNotFound
	}

	refreshed := session.WithExpiry(now, newDuration)
	payload, err := encodeSession(refreshed)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()

	keys := []string{r.sessionKey(refreshed.Subject, refreshed.ID), r.tokenKey(refreshed.Token)}
	args := []any{payload, r.redirectValue(refreshed), newDuration.Milliseconds()}
	if err := putSessionLua.Run(ctx, r.client, keys, args...).Err(); err != nil {
		return nil, r.unavailable("refresh session", err)
	}

	return &refreshed, nil
}

func validateSession(session domain.Session) error {
	if strings.TrimSpace(session.Subject) == "" {
		return fmt.Errorf("session subject is required")
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(session.Token) == "" {
		return fmt.Errorf("session token is required")
	}
	return nil
}

func (r *SessionRepository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

func (r *SessionRepository) unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %v", op, repository.ErrUnavailable, err)
}

func (r *SessionRepository) sessionKey(subject, id string) string {
	return fmt.Sprintf("%s:%s:%s", r.cfg.SessionPrefix, subject, id)
}

func (r *SessionRepository) tokenKey(token string) string {
	return fmt.Sprintf("%s:%s", r.cfg.TokenPrefix, token)
}

func (r *SessionRepository) redirectValue(session domain.Session) string {
	return session.Subject + ":" + session.ID
}
