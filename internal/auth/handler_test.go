package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardhub/pkg/database"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "cardhub-test", Duration: time.Hour}
	h := NewHandler(NewRepo(db), tokens, log)

	r := gin.New()
	h.RegisterRoutes(r.Group("/auth"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": "collector",
		"email":    "collector@example.org",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterLoginAndMe(t *testing.T) {
	r := newTestRouter(t)
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "collector", me.Username)
	assert.Equal(t, "collector@example.org", me.Email)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "collector@example.org",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginMatchesEmailCaseInsensitively(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r)

	// emails are stored normalized, so case variants hit the same row
	w := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "Collector@Example.org",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": "collector",
		"email":    "other@example.org",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "collector@example.org",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	r := newTestRouter(t)
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the token version bump makes the old token unusable
	w = doJSON(t, r, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
