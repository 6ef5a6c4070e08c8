package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken wraps every verification failure
var ErrInvalidToken = errors.New("invalid token")

const clockSkew = 30 * time.Second

// Verifier checks signature, expiry, issuer and audience of a JWT
type Verifier struct {
	keys     KeySetSource
	issuer   string
	audience string
	clock    clock.Clock
}

// NewVerifier creates a verifier. Empty issuer or audience skips that check.
func NewVerifier(keys KeySetSource, issuer, audience string, c clock.Clock) *Verifier {
	if c == nil {
		c = clock.Real()
	}
	return &Verifier{keys: keys, issuer: issuer, audience: audience, clock: c}
}

// Verify parses the token and returns the principal it identifies
func (v *Verifier) Verify(ctx context.Context, token string) (*models.Principal, error) {
	keys, err := v.keys.KeySet(ctx)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.clock.Now)),
		jwt.WithAcceptableSkew(clockSkew),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &models.Principal{
		Subject:   parsed.Subject(),
		Email:     stringClaim(parsed, "email"),
		Name:      stringClaim(parsed, "name"),
		Issuer:    parsed.Issuer(),
		Audience:  parsed.Audience(),
		ExpiresAt: parsed.Expiration(),
	}, nil
}

func stringClaim(t jwt.Token, name string) string {
	if v, ok := t.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
