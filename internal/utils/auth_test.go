package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Fatal("password did not verify")
	}
	if VerifyPassword(hash, "S3cret") {
		t.Fatal("wrong password verified")
	}
	if VerifyPassword("not-a-hash", "s3cret") {
		t.Fatal("garbage hash verified")
	}
}

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("secret", 7, "PROVIDER", 15)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Until(tok.Exp); d < 14*time.Minute || d > 15*time.Minute {
		t.Fatalf("expiry in %v", d)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil {
		t.Fatal(err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"].(float64) != 7 || claims["role"] != "PROVIDER" {
		t.Fatalf("claims = %v", claims)
	}
	if _, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("other"), nil }); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}
