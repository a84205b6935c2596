package jwttoken

import (
	authmw "carbonmint/pkg/platform/middleware/auth"
)

// JWTServiceAdapter satisfies the auth middleware's TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	caller, err := claims.Caller()
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{Caller: caller, JTI: claims.ID}, nil
}
