package models

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role the admin API accepts
const RoleAdmin = "admin"

// AdminClaims are carried by operator tokens. Subject names the operator.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
