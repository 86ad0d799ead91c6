package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestReassembleToken(t *testing.T) {
	tests := []struct {
		name    string
		cookies map[string]string
		want    string
	}{
		{
			name:    "unfragmented",
			cookies: map[string]string{"tok": "ABCDEF"},
			want:    "ABCDEF",
		},
		{
			name: "fragments out of order",
			cookies: map[string]string{
				"tok.0": "AB",
				"tok.2": "EF",
				"tok.1": "CD",
			},
			want: "ABCDEF",
		},
		{
			name: "unfragmented wins over fragments",
			cookies: map[string]string{
				"tok":   "WHOLE",
				"tok.0": "AB",
				"tok.1": "CD",
			},
			want: "WHOLE",
		},
		{
			name: "double digit indexes sort numerically",
			cookies: map[string]string{
				"tok.10": "K",
				"tok.2":  "C",
				"tok.0":  "A",
				"tok.1":  "B",
			},
			want: "ABCK",
		},
		{
			name: "non numeric suffixes ignored",
			cookies: map[string]string{
				"tok.0":   "AB",
				"tok.abc": "XX",
				"token":   "YY",
			},
			want: "AB",
		},
		{
			name:    "nothing matches",
			cookies: map[string]string{"other": "ZZ"},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReassembleToken(tt.cookies, "tok"); got != tt.want {
				t.Errorf("ReassembleToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader("a=1; session-token.0=xx; session-token.1=yy")
	if cookies["a"] != "1" || cookies["session-token.0"] != "xx" || cookies["session-token.1"] != "yy" {
		t.Errorf("unexpected parse result: %v", cookies)
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestResolve(t *testing.T) {
	const secret = "test-secret"
	r := NewResolver(secret, "session-token")
	userID := uuid.New()

	token := signToken(t, secret, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "ana@example.com",
		"name":  "Ana",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	ident, err := r.Resolve("session-token=" + token)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if ident.ID != userID || ident.Email != "ana@example.com" || ident.Name != "Ana" {
		t.Errorf("unexpected identity: %+v", ident)
	}
}

func TestResolveFragmented(t *testing.T) {
	const secret = "test-secret"
	r := NewResolver(secret, "session-token")
	userID := uuid.New()

	token := signToken(t, secret, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	// Split the token across fragments, listed out of order in the header.
	mid := len(token) / 2
	header := "session-token.1=" + token[mid:] + "; session-token.0=" + token[:mid]

	ident, err := r.Resolve(header)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if ident.ID != userID {
		t.Errorf("got user %s, want %s", ident.ID, userID)
	}
}

func TestResolveRejects(t *testing.T) {
	const secret = "test-secret"
	r := NewResolver(secret, "session-token")
	userID := uuid.New()

	tests := []struct {
		name   string
		header string
	}{
		{name: "no cookie", header: ""},
		{name: "unrelated cookies", header: "theme=dark; lang=en"},
		{name: "garbage token", header: "session-token=not-a-jwt"},
		{
			name: "expired",
			header: "session-token=" + signToken(t, secret, jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "wrong secret",
			header: "session-token=" + signToken(t, "other-secret", jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			name: "sub is not a uuid",
			header: "session-token=" + signToken(t, secret, jwt.MapClaims{
				"sub": "42",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Resolve(tt.header); err == nil {
				t.Error("Resolve() succeeded, want error")
			}
		})
	}
}
