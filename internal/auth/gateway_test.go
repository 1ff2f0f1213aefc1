package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
)

type stubVerifier struct {
	want string
}

func (v stubVerifier) Verify(token string) (string, error) {
	if token != v.want {
		return "", errors.New("bad token")
	}
	return "user-1", nil
}

func TestGatewayTokenFromQueryParam(t *testing.T) {
	g := NewGateway(stubVerifier{want: "tok"})

	r := httptest.NewRequest("GET", "/ws?token=tok", nil)
	userID, err := g.Authenticate(r)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestGatewayTokenFromBearerHeader(t *testing.T) {
	g := NewGateway(stubVerifier{want: "tok"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer tok")
	if _, err := g.Authenticate(r); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestGatewayTokenFromRawHeader(t *testing.T) {
	g := NewGateway(stubVerifier{want: "tok"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "tok")
	if _, err := g.Authenticate(r); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestGatewayQueryParamWinsOverHeader(t *testing.T) {
	g := NewGateway(stubVerifier{want: "tok"})

	r := httptest.NewRequest("GET", "/ws?token=tok", nil)
	r.Header.Set("Authorization", "Bearer other")
	if _, err := g.Authenticate(r); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestGatewayMissingToken(t *testing.T) {
	g := NewGateway(stubVerifier{want: "tok"})

	r := httptest.NewRequest("GET", "/ws", nil)
	_, err := g.Authenticate(r)

	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Reason != ReasonMissing {
		t.Fatalf("expected missing-token error, got %v", err)
	}
}

func TestGatewayInvalidToken(t *testing.T) {
	g := NewGateway(stubVerifier{want: "tok"})

	r := httptest.NewRequest("GET", "/ws?token=wrong", nil)
	_, err := g.Authenticate(r)

	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Reason != ReasonInvalid {
		t.Fatalf("expected invalid-token error, got %v", err)
	}
}
