package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// JWTManager issues and verifies HS256 access tokens.
type JWTManager struct {
	AccessSecret []byte
	AccessTTL    time.Duration
	now          func() time.Time
}

func NewJWTManager(accessSecret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret: []byte(accessSecret),
		AccessTTL:    accessTTL,
		now:          time.Now,
	}
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Create signs an access token for the given identity.
func (m *JWTManager) Create(identity repository.IdentityClaims) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID: identity.UserID.String(),
		Email:  identity.Email,
		Role:   identity.Role.Value(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.AccessSecret)
}

// ParseAccessToken verifies signature and expiry and returns the identity.
func (m *JWTManager) ParseAccessToken(tokenStr string) (repository.IdentityClaims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.AccessSecret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return repository.IdentityClaims{}, err
	}
	if !tkn.Valid {
		return repository.IdentityClaims{}, errors.New("invalid token")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return repository.IdentityClaims{}, errors.New("invalid subject")
	}
	return repository.IdentityClaims{
		UserID: id,
		Email:  claims.Email,
		Role:   entity.RoleFromDB(claims.Role),
	}, nil
}

var _ repository.TokenIssuer = (*JWTManager)(nil)
