package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload issued by the LMS for API callers.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Language string   `json:"lang,omitempty"`
	jwt.RegisteredClaims
}
