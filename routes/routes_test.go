package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"barbershop-backend/controllers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func health(t *testing.T, r *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w
}

func TestSetupRouter_CORS(t *testing.T) {
	opts := Options{
		CORSOrigins:          []string{"http://localhost:3000"},
		JWTSecret:            "secret",
		WebhookRatePerMinute: 10,
		BookingRatePerMinute: 10,
		Logger:               zap.NewNop(),
	}
	w := health(t, SetupRouter(&controllers.Handler{}, opts))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRouter_EmptyOrigins(t *testing.T) {
	opts := Options{
		JWTSecret:            "secret",
		WebhookRatePerMinute: 10,
		BookingRatePerMinute: 10,
		Logger:               zap.NewNop(),
	}
	var r *gin.Engine
	require.NotPanics(t, func() { r = SetupRouter(&controllers.Handler{}, opts) })
	w := health(t, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
