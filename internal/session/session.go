package session

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoToken      = errors.New("no session token in cookie header")
	ErrInvalidToken = errors.New("invalid session token")
)

// Identity is the authenticated user bound to a connection at handshake.
// It is resolved once and never re-derived for the connection's lifetime.
type Identity struct {
	ID    uuid.UUID
	Email string
	Name  string
}

// Resolver verifies session tokens reconstructed from handshake cookies.
type Resolver struct {
	secret     []byte
	cookieName string
}

func NewResolver(secret, cookieName string) *Resolver {
	return &Resolver{
		secret:     []byte(secret),
		cookieName: cookieName,
	}
}

// Resolve authenticates the raw Cookie header of a handshake request.
// Any failure (missing, malformed, expired, bad signature) rejects the
// connection before any room join or message traffic is processed.
func (r *Resolver) Resolve(cookieHeader string) (*Identity, error) {
	token := ReassembleToken(ParseCookieHeader(cookieHeader), r.cookieName)
	if token == "" {
		return nil, ErrNoToken
	}
	return r.VerifyToken(token)
}

// VerifyToken checks a reconstructed session token and extracts the
// identity it certifies.
func (r *Resolver) VerifyToken(token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ident := &Identity{ID: userID}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		ident.Name = name
	}
	return ident, nil
}

// ParseCookieHeader parses a raw Cookie header into name→value pairs.
func ParseCookieHeader(header string) map[string]string {
	req := http.Request{Header: http.Header{"Cookie": []string{header}}}
	cookies := map[string]string{}
	for _, c := range req.Cookies() {
		cookies[c.Name] = c.Value
	}
	return cookies
}

// ReassembleToken returns the session token for name from a cookie map.
// An unfragmented cookie wins as-is; otherwise fragments named
// "<name>.0", "<name>.1", ... are concatenated by their numeric suffix
// ascending, regardless of header order. Returns "" when nothing matches.
func ReassembleToken(cookies map[string]string, name string) string {
	if v, ok := cookies[name]; ok && v != "" {
		return v
	}

	type fragment struct {
		index int
		value string
	}
	var fragments []fragment
	prefix := name + "."
	for key, value := range cookies {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		index, err := strconv.Atoi(key[len(prefix):])
		if err != nil {
			continue
		}
		fragments = append(fragments, fragment{index: index, value: value})
	}
	if len(fragments) == 0 {
		return ""
	}

	sort.Slice(fragments, func(i, j int) bool { return fragments[i].index < fragments[j].index })

	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.value)
	}
	return b.String()
}
