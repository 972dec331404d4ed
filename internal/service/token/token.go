package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrExpired means the token was well-formed and correctly signed but
	// its expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other decode failure: malformed token, wrong
	// signing method, bad signature, unparseable claims.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the signed token payload. Fresh and IsAdmin are fixed at
// issuance time and never change for the life of the token.
type Claims struct {
	Fresh   bool   `json:"fresh"`
	IsAdmin bool   `json:"is_admin"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

type Service struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *Service) accessTTL() time.Duration {
	if s.AccessTTL != 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *Service) refreshTTL() time.Duration {
	if s.RefreshTTL != 0 {
		return s.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

// IssueAccess signs an access token for the user. The admin claim is
// derived from the user's role by the caller at issuance time.
func (s *Service) IssueAccess(userID uint, isAdmin, fresh bool) (string, error) {
	return s.sign(userID, isAdmin, fresh, TypeAccess, s.accessTTL())
}

// IssueRefresh signs a refresh token. Refresh tokens are never fresh and
// exist only to mint new non-fresh access tokens.
func (s *Service) IssueRefresh(userID uint, isAdmin bool) (string, error) {
	return s.sign(userID, isAdmin, false, TypeRefresh, s.refreshTTL())
}

func (s *Service) sign(userID uint, isAdmin, fresh bool, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Fresh:   fresh,
		IsAdmin: isAdmin,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry of a raw bearer token and
// returns its claims. Failures are classified as ErrExpired or ErrInvalid.
func (s *Service) Parse(raw string) (*Claims, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !t.Valid {
		return nil, ErrInvalid
	}
	return &claims, nil
}
