package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking/internal/utils"
)

func protected(secret string) *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := ProviderID(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, JWTAuth(secret), RequireRole(RoleProvider))
	return e
}

func sign(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	good, err := utils.NewAccessToken(secret, 42, RoleProvider, 5)
	if err != nil {
		t.Fatal(err)
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + good.Token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Token " + good.Token, http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, jwt.MapClaims{"sub": 42, "role": RoleProvider, "exp": exp}, jwt.SigningMethodHS256, []byte("nope")), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.MapClaims{"sub": 42, "role": RoleProvider, "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256, []byte(secret)), http.StatusUnauthorized},
		{"other alg", "Bearer " + sign(t, jwt.MapClaims{"sub": 42, "role": RoleProvider, "exp": exp}, jwt.SigningMethodHS384, []byte(secret)), http.StatusUnauthorized},
		{"no subject", "Bearer " + sign(t, jwt.MapClaims{"role": RoleProvider, "exp": exp}, jwt.SigningMethodHS256, []byte(secret)), http.StatusUnauthorized},
		{"string subject", "Bearer " + sign(t, jwt.MapClaims{"sub": "42", "role": RoleProvider, "exp": exp}, jwt.SigningMethodHS256, []byte(secret)), http.StatusOK},
		{"wrong role", "Bearer " + sign(t, jwt.MapClaims{"sub": 42, "role": "CUSTOMER", "exp": exp}, jwt.SigningMethodHS256, []byte(secret)), http.StatusForbidden},
	}
	e := protected(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
