package auth

import "github.com/golang-jwt/jwt/v5"

func subject(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}
