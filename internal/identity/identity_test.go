package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testJWT() JWT {
	return JWT{Secret: []byte("test-secret"), Issuer: "league-exchange", TokenTTL: time.Hour}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	j := testJWT()
	c := Claims{Username: "frodan"}
	c.Subject = "u1"

	tok, exp, err := j.Sign(c)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %s is in the past", exp)
	}

	got, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.UserID() != "u1" || got.Username != "frodan" {
		t.Errorf("claims = %+v", got)
	}
}

func TestVerify_Rejects(t *testing.T) {
	j := testJWT()

	other := JWT{Secret: []byte("other"), Issuer: "league-exchange"}
	c := Claims{}
	c.Subject = "u1"
	wrongKey, _, _ := other.Sign(c)

	expired := Claims{}
	expired.Subject = "u1"
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	expiredTok, _, _ := j.Sign(expired)

	wrongIssuer := Claims{}
	wrongIssuer.Subject = "u1"
	wrongIssuer.Issuer = "someone-else"
	wrongIssuerTok, _, _ := j.Sign(wrongIssuer)

	noSubject, _, _ := j.Sign(Claims{})

	tests := map[string]string{
		"wrong key":    wrongKey,
		"expired":      expiredTok,
		"wrong issuer": wrongIssuerTok,
		"no subject":   noSubject,
		"garbage":      "not-a-token",
	}
	for name, tok := range tests {
		if _, err := j.Verify(tok); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMiddleware(t *testing.T) {
	j := testJWT()
	var seen string
	h := Middleware(j)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := FromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
		}
		seen = c.UserID()
		w.WriteHeader(http.StatusNoContent)
	}))

	c := Claims{}
	c.Subject = "u42"
	tok, _, _ := j.Sign(c)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen != "u42" {
		t.Errorf("user = %q, want u42", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("basic auth: status = %d, want 401", rec.Code)
	}
}

func TestDevMiddleware(t *testing.T) {
	h := DevMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := FromContext(r.Context())
		w.Write([]byte(c.UserID()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DevUserHeader, "u7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "u7" {
		t.Errorf("body = %q, want u7", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
