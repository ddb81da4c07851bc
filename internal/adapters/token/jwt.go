package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pawtrail/internal/domain"
)

// MembershipClaim is one org/role pair embedded in the access token so the
// org-scope middleware can authorize without a DB round trip.
type MembershipClaim struct {
	OrgID int64  `json:"org_id"`
	Role  string `json:"role"`
}

type Claims struct {
	Memberships []MembershipClaim `json:"memberships,omitempty"`
	jwt.RegisteredClaims
}

// Role returns the caller's role in orgID, or false when not a member.
func (c *Claims) Role(orgID int64) (domain.Role, bool) {
	for _, m := range c.Memberships {
		if m.OrgID == orgID {
			return domain.Role(m.Role), true
		}
	}
	return "", false
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(u domain.User, ms []domain.Membership) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    "pawtrail",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	for _, m := range ms {
		claims.Memberships = append(claims.Memberships, MembershipClaim{OrgID: m.OrgID, Role: string(m.Role)})
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a bearer token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
