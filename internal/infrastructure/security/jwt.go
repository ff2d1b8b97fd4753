package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vetcare/identity-api/internal/core/domain"
	"github.com/vetcare/identity-api/internal/core/ports"
)

const (
	// MinSecretLength is the minimum HS256 signing key length in bytes.
	MinSecretLength  = 32
	opaqueTokenBytes = 32
	defaultAccessTTL = 15 * time.Minute
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakSecret   = fmt.Errorf("jwt secret must be at least %d characters long", MinSecretLength)
)

// JWTOptions configures a JWTIssuer. It is built once at startup from the
// process configuration.
type JWTOptions struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// JWTIssuer signs HS256 access tokens and generates opaque refresh and reset
// tokens.
type JWTIssuer struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTIssuer(opts JWTOptions) (*JWTIssuer, error) {
	if len(opts.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if opts.Issuer == "" || opts.Audience == "" {
		return nil, errors.New("jwt issuer and audience are required")
	}
	ttl := opts.AccessTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	return &JWTIssuer{
		secret:    []byte(opts.Secret),
		issuer:    opts.Issuer,
		audience:  opts.Audience,
		accessTTL: ttl,
		now:       time.Now,
	}, nil
}

func (j *JWTIssuer) AccessTokenLifetime() time.Duration { return j.accessTTL }

// IssueAccessToken returns a signed token whose subject is the user id.
func (j *JWTIssuer) IssueAccessToken(user *domain.User) (string, error) {
	now := j.now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		Email: user.Email,
		Name:  user.FullName(),
		Role:  string(user.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueOpaqueToken returns 32 random bytes encoded as unpadded base64url, so
// the value is safe in cookies and query strings.
func (j *JWTIssuer) IssueOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// VerifyAccessToken checks signature, algorithm, issuer, audience and expiry.
func (j *JWTIssuer) VerifyAccessToken(token string) (*ports.AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	out := &ports.AccessClaims{
		TokenID: claims.ID,
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    domain.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
