package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"guard-backend/pkg/common"
)

// Principal roles carried in the token. Identity issuance (OAuth login, token
// refresh) is owned by the auth service; this package only validates.
const (
	RoleSubject  = "subject"
	RoleGuardian = "guardian"
	RoleAdmin    = "admin"
)

var (
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidToken     = errors.New("invalid token")
)

// Claims are the validated claims of an access token.
type Claims struct {
	UserID string
	Role   string
}

// JWTConfig configures token validation.
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// JWTValidator validates HS256 access tokens issued by the auth service.
type JWTValidator struct {
	config JWTConfig
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}
	return &JWTValidator{config: config}, nil
}

// ValidateToken parses and validates a token string, returning its claims.
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.config.SecretKey), nil
	},
		jwt.WithIssuer(v.config.Issuer),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	role, _ := mapClaims["role"].(string)
	if role == "" {
		role = RoleGuardian
	}

	return &Claims{UserID: sub, Role: role}, nil
}

// GetUserFromContext returns the principal stored by the auth middleware.
func GetUserFromContext(ctx context.Context) (*Claims, error) {
	userID, ok := common.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, errors.New("no authenticated user in context")
	}
	role, _ := common.GetUserRole(ctx)
	return &Claims{UserID: userID, Role: role}, nil
}
