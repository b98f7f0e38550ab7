// Copyright Contributors to the Open Cluster Management project
package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stolostron/hnc-event-relay/pkg/config"
	"github.com/stretchr/testify/assert"
)

func Test_GetUsername(t *testing.T) {
	server, _ := buildMockServer(t)
	res := httptest.NewRecorder()

	server.Router().ServeHTTP(res, asUser(httptest.NewRequest("GET", "/api/get/username", nil), "alice"))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "alice", res.Body.String())
}

// Should reject API requests without a token.
func Test_identityMiddleware_missingToken(t *testing.T) {
	server, _ := buildMockServer(t)
	req := httptest.NewRequest("GET", "/api/get/username", nil)
	req.Header.Set("x-forwarded-user", "alice")
	res := httptest.NewRecorder()

	server.Router().ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

// Should act as the service account when USE_SA_TOKEN is set.
func Test_identityMiddleware_serviceAccount(t *testing.T) {
	config.Cfg.UseSAToken = true
	defer func() { config.Cfg.UseSAToken = false }()

	server, _ := buildMockServer(t)
	res := httptest.NewRecorder()

	server.Router().ServeHTTP(res, httptest.NewRequest("GET", "/api/get/username", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, ServiceAccountUser, res.Body.String())
}

func Test_Logout(t *testing.T) {
	server, _ := buildMockServer(t)
	res := httptest.NewRecorder()

	server.Router().ServeHTTP(res, httptest.NewRequest("GET", "/logout", nil))

	assert.Equal(t, http.StatusMovedPermanently, res.Code)
	assert.Equal(t, config.Cfg.LogoutPath, res.Header().Get("Location"))
}
