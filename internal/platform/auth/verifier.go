package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"brokerhub/internal/pkg/errors"
)

// Claims are the fields read from an identity provider token. Audience is
// carried but never checked.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is a verified credential that may not yet map to a user.
type Identity struct {
	Subject string  `json:"subject"`
	Email   string  `json:"email"`
	Claims  *Claims `json:"-"`
}

var ErrSecretNotConfigured = errors.Internal("JWT secret not configured", nil)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks an HS256 compact token and returns its subject and email.
// Any other algorithm, including "none", is rejected.
func (v *Verifier) Verify(token string) (*Identity, error) {
	if len(v.secret) == 0 {
		return nil, ErrSecretNotConfigured
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, &errors.Error{Kind: errors.KindUnauthorized, Message: "Invalid or expired token", Err: err}
	}

	if claims.Subject == "" {
		return nil, errors.Unauthorized("Invalid token: missing sub claim")
	}

	return &Identity{Subject: claims.Subject, Email: claims.Email, Claims: claims}, nil
}

// Sign issues an HS256 token for subject. The server never needs it; the
// seed command and tests use it to mint credentials an identity provider
// would normally hand out.
func (v *Verifier) Sign(subject, email string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSecretNotConfigured
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "brokerhub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
