package auth

import (
	"net/http"
	"strings"
)

// Rejection reasons for failed connection attempts.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
)

// Error rejects a connection attempt before any command can run.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "authentication error: token " + e.Reason
}

// Verifier checks a bearer token and returns the user it identifies.
// Production uses JWT; tests stub it.
type Verifier interface {
	Verify(token string) (string, error)
}

// JWTVerifier validates tokens with a shared-secret JWT config.
type JWTVerifier struct {
	cfg *JWTConfig
}

// NewJWTVerifier builds a verifier over cfg.
func NewJWTVerifier(cfg *JWTConfig) *JWTVerifier {
	return &JWTVerifier{cfg: cfg}
}

// Verify validates the token and returns the claimed user id.
func (v *JWTVerifier) Verify(token string) (string, error) {
	claims, err := ValidateToken(v.cfg, token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Gateway is the only place identities enter the system. It extracts a
// bearer token from the handshake, verifies it, and hands the resulting
// identity to the transport; every later command trusts that identity
// and never re-derives it from client payloads.
type Gateway struct {
	verifier Verifier
}

// NewGateway builds a gateway over the given verifier.
func NewGateway(verifier Verifier) *Gateway {
	return &Gateway{verifier: verifier}
}

// Authenticate resolves the identity for a new connection attempt. The
// token comes from the "token" query parameter or the Authorization
// header, either raw or in "Bearer <value>" form (case-sensitive
// prefix).
func (g *Gateway) Authenticate(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	if token == "" {
		return "", &Error{Reason: ReasonMissing}
	}

	if rest, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = rest
	}

	userID, err := g.verifier.Verify(token)
	if err != nil {
		return "", &Error{Reason: ReasonInvalid}
	}
	return userID, nil
}
