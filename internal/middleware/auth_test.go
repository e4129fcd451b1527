package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/test", AuthRequired(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	validClaims := func(sub string, exp time.Duration) jwt.MapClaims {
		return jwt.MapClaims{"sub": sub, "exp": time.Now().Add(exp).Unix()}
	}

	tests := []struct {
		name           string
		authHeader     string
		query          string
		upgrade        bool
		expectedStatus int
		expectedUserID uint
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer " + signToken(t, testSecret, validClaims(strconv.Itoa(42), time.Hour)),
			expectedStatus: http.StatusOK,
			expectedUserID: 42,
		},
		{
			name:           "missing header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "basic auth scheme",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer " + signToken(t, testSecret, validClaims("42", -time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong secret",
			authHeader:     "Bearer " + signToken(t, "another-secret", validClaims("42", time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "query token on websocket handshake",
			query:          "?access_token=" + signToken(t, testSecret, validClaims("7", time.Hour)),
			upgrade:        true,
			expectedStatus: http.StatusOK,
			expectedUserID: 7,
		},
		{
			name:           "query token on plain request",
			query:          "?access_token=" + signToken(t, testSecret, validClaims("7", time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "non numeric subject",
			authHeader:     "Bearer " + signToken(t, testSecret, validClaims("abc", time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			}
		})
	}
}
