package models

import "github.com/golang-jwt/jwt/v5"

// IssuerClaims is the payload of a bearer token identifying the acting teacher.
type IssuerClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
