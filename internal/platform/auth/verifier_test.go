package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"brokerhub/internal/pkg/errors"
)

const testSecret = "test-secret-with-enough-bytes"

func signWith(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now()

	valid, err := v.Sign("sub-1", "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	withAudience := signWith(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sub-aud",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	tests := []struct {
		name        string
		token       string
		wantSubject string
	}{
		{"valid", valid, "sub-1"},
		{"audience ignored", withAudience, "sub-aud"},
		{"wrong secret", signWith(t, jwt.SigningMethodHS256, []byte("other"), Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		}), ""},
		{"expired", signWith(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))},
		}), ""},
		{"HS512 rejected", signWith(t, jwt.SigningMethodHS512, []byte(testSecret), Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		}), ""},
		{"alg none rejected", signWith(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
		}), ""},
		{"missing sub", signWith(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
			Email:            "a@example.com",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		}), ""},
		{"malformed", "not.a.jwt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(tt.token)
			if tt.wantSubject != "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if id.Subject != tt.wantSubject {
					t.Errorf("subject = %q, want %q", id.Subject, tt.wantSubject)
				}
				return
			}
			if errors.KindOf(err) != errors.KindUnauthorized {
				t.Errorf("expected unauthorized, got %v", err)
			}
		})
	}

	t.Run("email claim", func(t *testing.T) {
		id, _ := v.Verify(valid)
		if id.Email != "a@example.com" {
			t.Errorf("email = %q", id.Email)
		}
	})
}

func TestVerifier_MissingSecret(t *testing.T) {
	v := NewVerifier("")
	_, err := v.Verify("anything")
	if !errors.Is(err, ErrSecretNotConfigured) {
		t.Fatalf("expected ErrSecretNotConfigured, got %v", err)
	}
	if errors.KindOf(err) != errors.KindInternal {
		t.Errorf("missing secret must be a server error, got %v", errors.KindOf(err))
	}
}
