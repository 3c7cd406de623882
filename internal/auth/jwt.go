package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"

	purposeReset = "password_reset"
)

var ErrWrongPurpose = errors.New("token purpose mismatch")

// Principal is the verified caller attached to a request.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) Is(role string) bool {
	return p.Role == role
}

type Manager struct {
	Secret    []byte
	AccessTTL time.Duration
	ResetTTL  time.Duration
	Issuer    string
}

type Claims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

func (m *Manager) newToken(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.Issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

func (m *Manager) NewAccessToken(userID, role string) (string, error) {
	return m.newToken(Claims{UserID: userID, Role: role}, m.AccessTTL)
}

func (m *Manager) NewResetToken(userID string) (string, error) {
	ttl := m.ResetTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return m.newToken(Claims{UserID: userID, Purpose: purposeReset}, ttl)
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithIssuer(m.Issuer))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token missing user id")
	}
	return claims, nil
}

// Parse validates an access token. Reset tokens are refused.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

func (m *Manager) ParseReset(tokenStr string) (string, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Purpose != purposeReset {
		return "", ErrWrongPurpose
	}
	return claims.UserID, nil
}
