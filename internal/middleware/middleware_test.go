package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTProtected(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, "ada")
	cfg := &config.Config{JWTSecret: testutil.JWTSecret}

	app := fiber.New()
	app.Get("/p", JWTProtected(cfg), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/p", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, user))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestActiveUser(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, "ada")
	tok := testutil.Token(t, user)
	cfg := &config.Config{JWTSecret: testutil.JWTSecret}

	app := fiber.New()
	app.Get("/p", JWTProtected(cfg), ActiveUser(db), func(c *fiber.Ctx) error { return c.SendString("ok") })

	get := func() int {
		req := httptest.NewRequest("GET", "/p", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, get())

	require.NoError(t, db.Unscoped().Delete(user).Error)
	assert.Equal(t, fiber.StatusUnauthorized, get())
}

func TestAdminRequired(t *testing.T) {
	db := testutil.NewDB(t)
	plain := testutil.NewUser(t, db, "plain")
	listed := testutil.NewUser(t, db, "listed")
	roled := testutil.NewUser(t, db, "roled")
	require.NoError(t, db.Model(roled).Update("role", "admin").Error)

	cfg := &config.Config{JWTSecret: testutil.JWTSecret, AdminEmails: " Listed@example.com , other@example.com"}
	app := fiber.New()
	app.Get("/admin", JWTProtected(cfg), AdminRequired(db, cfg), func(c *fiber.Ctx) error { return c.SendString("ok") })

	cases := []struct {
		name string
		tok  string
		want int
	}{
		{"plain user", testutil.Token(t, plain), fiber.StatusForbidden},
		{"email listed", testutil.Token(t, listed), fiber.StatusOK},
		{"admin role", testutil.Token(t, roled), fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tc.tok)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}
