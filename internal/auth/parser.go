package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"claims-service/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the payload issued by the identity service.
type AccessClaims struct {
	UserID       uuid.UUID  `json:"user_id"`
	Role         model.Role `json:"role"`
	Name         string     `json:"name"`
	Approved     bool       `json:"approved"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	switch claims.Role {
	case model.RoleAdmin, model.RoleReceptionist, model.RoleTechnician:
	default:
		return nil, ErrInvalidToken
	}

	return claims, nil
}
