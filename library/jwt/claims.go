package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the payload of forum auth tokens.
// Subject holds the user id in hex.
type UserClaims struct {
	jwt.RegisteredClaims
	Nick string `json:"nick"`
}
