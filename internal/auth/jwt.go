package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/plantshop-checkout/internal/session"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the flow identity inside a session token. The gateway
// uses bearer tokens on its own surface; the legacy plain userId/email
// scheme survives only on the upstream wire.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService mints and validates gateway session tokens.
type JWTService struct {
	secretKey     []byte
	sessionExpiry time.Duration
}

func NewJWTService(secretKey string, sessionExpiry time.Duration) *JWTService {
	return &JWTService{
		secretKey:     []byte(secretKey),
		sessionExpiry: sessionExpiry,
	}
}

// GenerateSessionToken creates a token for the given identity.
func (s *JWTService) GenerateSessionToken(user session.Context) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.sessionExpiry)

	claims := Claims{
		UserID: user.UserID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateSessionToken validates a token and returns the identity it
// carries.
func (s *JWTService) ValidateSessionToken(tokenString string) (session.Context, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return session.Context{}, ErrExpiredToken
		}
		return session.Context{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return session.Context{}, ErrInvalidToken
	}

	return session.Context{UserID: claims.UserID, Email: claims.Email}, nil
}

// SessionExpiry returns the token lifetime.
func (s *JWTService) SessionExpiry() time.Duration {
	return s.sessionExpiry
}
