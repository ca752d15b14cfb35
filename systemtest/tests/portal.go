package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortal(t *testing.T, router *gin.Engine, store *credentials.Store) {
	t.Run("form", func(t *testing.T) {
		rr := doRequest(router, "GET", "/", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `name="ssid"`)
	})

	t.Run("blank fields rejected", func(t *testing.T) {
		rr := doForm(router, "ssid=&password=&device_id=")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.False(t, store.IsProvisioned())
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		rr := doForm(router, "ssid=x&pad="+strings.Repeat("a", 600))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.False(t, store.IsProvisioned())
	})

	t.Run("submission persisted", func(t *testing.T) {
		rr := doForm(router, "ssid=My+Home&password=ab%21cd&device_id=dev-01&api_key=key-1")
		require.Equal(t, http.StatusOK, rr.Code)
		require.True(t, store.IsProvisioned())

		rec, err := store.Load()
		require.NoError(t, err)
		defer rec.Wipe()
		assert.Equal(t, "My Home", string(rec.SSID))
		assert.Equal(t, "ab!cd", string(rec.Password))
		assert.Equal(t, "dev-01", string(rec.DeviceID))
		assert.Equal(t, "key-1", string(rec.APIKey))
	})

	t.Run("second submission conflicts", func(t *testing.T) {
		rr := doForm(router, "ssid=Other&password=x&device_id=dev-02")
		assert.Equal(t, http.StatusConflict, rr.Code)

		rec, err := store.Load()
		require.NoError(t, err)
		defer rec.Wipe()
		assert.Equal(t, "My Home", string(rec.SSID))
	})
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doForm(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/provision", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
