package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tagboard/internal/config"
	"tagboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, srv *Server, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestReadinessCheck(t *testing.T) {
	db := testutil.OpenSQLite(t)
	cfg := &config.Config{JWTSecret: testSecret, Env: "test"}

	status, body := getJSON(t, New(cfg, db, nil), "/health/ready")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, statusHealthy, body["status"])
	assert.Equal(t, map[string]interface{}{"database": statusHealthy, "redis": statusUnavailable}, body["checks"])

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	_, body = getJSON(t, New(cfg, db, rdb), "/health")
	assert.Equal(t, statusHealthy, body["checks"].(map[string]interface{})["redis"])

	mr.Close()
	status, body = getJSON(t, New(cfg, db, rdb), "/health/ready")
	assert.Equal(t, http.StatusOK, status, "redis does not decide readiness")
	assert.Equal(t, statusUnhealthy, body["checks"].(map[string]interface{})["redis"])

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	status, body = getJSON(t, New(cfg, db, nil), "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, statusUnhealthy, body["status"])
}

func TestAppAnswersUnknownRoutesWithJSON(t *testing.T) {
	srv := New(&config.Config{JWTSecret: testSecret, Env: "test"}, testutil.OpenSQLite(t), nil)

	status, body := getJSON(t, srv, "/nowhere")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "Cannot GET /nowhere")

	status, body = getJSON(t, srv, "/health/live")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["status"])
}
