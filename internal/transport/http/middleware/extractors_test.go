package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newExtractorContext(t *testing.T, prepare func(*http.Request)) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	prepare(c.Request)
	return c
}

func TestCookieExtractor(t *testing.T) {
	store := &stubSessionStore{session: testSession()}
	extract := CookieExtractor(store, testCookieName)

	tests := []struct {
		name    string
		value   string
		present bool
	}{
		{"well formed", "acct-1:sess-1", true},
		{"extra colon splits at first", "acct-1:sess:with:colons", true},
		{"missing delimiter", "acct-1", false},
		{"empty subject", ":sess-1", false},
		{"empty id", "acct-1:", false},
		{"empty value", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newExtractorContext(t, func(r *http.Request) {
				if tt.value != "" {
					r.AddCookie(&http.Cookie{Name: testCookieName, Value: tt.value})
				}
			})

			resolver, ok := extract(c)
			if ok != tt.present {
				t.Fatalf("present=%v, want %v", ok, tt.present)
			}
			if tt.present && resolver == nil {
				t.Fatal("present credentials must yield a resolver")
			}
		})
	}
}

func TestCookieExtractorIsLazy(t *testing.T) {
	store := &stubSessionStore{session: testSession()}
	c := newExtractorContext(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: testCookieName, Value: "acct-1:sess-1"})
	})

	if _, ok := CookieExtractor(store, testCookieName)(c); !ok {
		t.Fatal("expected credentials to be found")
	}
	if got := store.lookups.Load(); got != 0 {
		t.Fatalf("extraction must not touch the store, got %d lookups", got)
	}
}

func TestBearerExtractor(t *testing.T) {
	store := &stubSessionStore{session: testSession()}
	extract := BearerExtractor(store)

	tests := []struct {
		name    string
		header  string
		present bool
	}{
		{"well formed", "Bearer tok-1", true},
		{"scheme case insensitive", "bearer tok-1", true},
		{"missing header", "", false},
		{"wrong scheme", "Basic dXNlcg==", false},
		{"no token", "Bearer", false},
		{"empty token", "Bearer ", false},
		{"too many parts", "Bearer tok extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newExtractorContext(t, func(r *http.Request) {
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}
			})

			_, ok := extract(c)
			if ok != tt.present {
				t.Fatalf("present=%v, want %v", ok, tt.present)
			}
		})
	}
}
