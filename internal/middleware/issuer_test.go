package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

const testSecret = "issuer-secret"

func signToken(t *testing.T, secret, userID string, expiresIn time.Duration) string {
	t.Helper()
	claims := models.IssuerClaims{
		UserID: userID,
		Role:   "teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func issuerRouter(verifier *IssuerVerifier, seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Issuer(verifier))
	router.POST("/", func(c *gin.Context) {
		*seen = ResolveIssuer(c, c.Query("issuer_id"))
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestIssuerHeaderWithoutTokens(t *testing.T) {
	var seen string
	router := issuerRouter(nil, &seen)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(IssuerHeader, "P1")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "P1", seen)

	req = httptest.NewRequest(http.MethodPost, "/?issuer_id=P2", nil)
	req.Header.Set(IssuerHeader, "P1")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "P2", seen)
}

func TestIssuerVerifiedTokenWinsOverBody(t *testing.T) {
	var seen string
	router := issuerRouter(NewIssuerVerifier(testSecret), &seen)

	req := httptest.NewRequest(http.MethodPost, "/?issuer_id=P2", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "P1", time.Hour))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "P1", seen)
}

func TestIssuerTokensRequiredIgnoresBody(t *testing.T) {
	seen := "unset"
	router := issuerRouter(NewIssuerVerifier(testSecret), &seen)

	req := httptest.NewRequest(http.MethodPost, "/?issuer_id=P2", nil)
	req.Header.Set(IssuerHeader, "P3")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "", seen)
}

func TestIssuerRejectsBadTokens(t *testing.T) {
	var seen string
	router := issuerRouter(NewIssuerVerifier(testSecret), &seen)

	cases := map[string]string{
		"wrong secret": "Bearer " + signToken(t, "other", "P1", time.Hour),
		"expired":      "Bearer " + signToken(t, testSecret, "P1", -time.Hour),
		"bad scheme":   "Basic abc",
		"garbage":      "Bearer not-a-token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", header)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Contains(t, recorder.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestIssuerVerifierRequiresUserID(t *testing.T) {
	verifier := NewIssuerVerifier(testSecret)
	_, err := verifier.Verify(signToken(t, testSecret, "", time.Hour))
	assert.Error(t, err)

	claims, err := verifier.Verify(signToken(t, testSecret, "P1", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "P1", claims.UserID)
	assert.Equal(t, "teacher", claims.Role)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	if ExtractMeta(c) != nil {
		t.Fatalf("expected no meta before middleware")
	}
	SetMeta(c, "range_start", "2024-01-01")
	meta := ExtractMeta(c)
	if meta["range_start"] != "2024-01-01" {
		t.Fatalf("unexpected meta: %v", meta)
	}
}
