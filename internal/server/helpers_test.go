package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"tagboard/internal/middleware"
	"tagboard/internal/repository"
	"tagboard/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func queryJSON(t *testing.T, app *fiber.App, target string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestPageParams(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := pageParams(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query  string
		limit  float64
		offset float64
	}{
		{"", 25, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=0", 25, 0},
		{"?limit=5000", maxPageLimit, 0},
		{"?offset=-4", 25, 0},
		{"?limit=10&page=3", 10, 20},
		{"?page=1&offset=7", 25, 7},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, body := queryJSON(t, app, "/items"+tt.query)
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

func TestIDParam(t *testing.T) {
	app := fiber.New()
	app.Get("/requests/:id", func(c *fiber.Ctx) error {
		id, ok := idParam(c, "request")
		if !ok {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	status, body := queryJSON(t, app, "/requests/42")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(42), body["id"])

	for _, raw := range []string{"abc", "0", "-3"} {
		t.Run(raw, func(t *testing.T) {
			status, body := queryJSON(t, app, "/requests/"+raw)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "Invalid request ID", body["error"])
		})
	}
}

// --- AdminRequired middleware ---

var selectUser = regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)

func adminApp(t *testing.T, userID uint) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	gormDB, mock := setupMockDB(t)
	users := service.NewUserService(repository.NewUserRepository(gormDB), false)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	app.Get("/admin", middleware.AdminRequired(users), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app, mock
}

func TestAdminRequired_AllowsAdmin(t *testing.T) {
	app, mock := adminApp(t, 1)
	mock.ExpectQuery(selectUser).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_admin"}).AddRow(1, "root", true))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRequired_RejectsNonAdmin(t *testing.T) {
	app, mock := adminApp(t, 2)
	mock.ExpectQuery(selectUser).
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_admin"}).AddRow(2, "member", false))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Admin access required", body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRequired_UnknownUser(t *testing.T) {
	app, mock := adminApp(t, 999)
	mock.ExpectQuery(selectUser).
		WithArgs(999, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
