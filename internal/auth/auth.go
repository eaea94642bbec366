package auth

import (
	"context"
	"fmt"
	"time"

	"inventory-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Actor is the authenticated caller's identity. It is extracted once at the
// API edge and passed explicitly into every engine call; engines never read
// identity from ambient state.
type Actor struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the actor has the administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Claims is the JWT payload issued by the auth collaborator.
type Claims struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens and produces actors.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier with the shared HMAC secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token.
func (v *Verifier) Verify(tokenString string) (Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return Actor{}, fmt.Errorf("%w: token carries no identity", models.ErrUnauthorized)
	}

	return Actor{
		UserID: claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// Sign issues a token for the given actor. Token issuance belongs to the
// auth collaborator; this exists for tests and local tooling.
func (v *Verifier) Sign(actor Actor, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: actor.UserID,
		Name:   actor.Name,
		Email:  actor.Email,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type contextKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFrom extracts the actor from the context.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
