package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"libhub/internal/config"
)

// AuthService is the admin gate: one shared password unlocking the
// destructive surfaces (restore, deletes). A confirmation mechanism, not a
// real identity system: there are no accounts and no roles beyond "admin".
type AuthService interface {
	Login(password string) (token string, err error)
	ValidateToken(tokenString string) (*jwt.Token, error)
}

type authService struct {
	passwordHash string
	jwtSecret    string
	jwtExpiry    time.Duration
}

func NewAuthService(cfg *config.Config) AuthService {
	return &authService{
		passwordHash: cfg.AdminPasswordHash,
		jwtSecret:    cfg.JWTSecret,
		jwtExpiry:    cfg.JWTExpiry,
	}
}

func (s *authService) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return token, nil
}
