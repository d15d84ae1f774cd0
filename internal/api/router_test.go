package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/kestrelhq/kestrel/internal/auth"
	testutil "github.com/kestrelhq/kestrel/internal/database/testutil"
	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/internal/realtime"
	"github.com/kestrelhq/kestrel/internal/services"
)

func newTestRouter(t *testing.T) (*gorm.DB, *gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	ctx := context.Background()
	require.NoError(t, permissions.Sync(ctx, db))
	require.NoError(t, permissions.SeedRolePermissions(ctx, db))

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret",
		Issuer:         "kestrel",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	resolver, err := permissions.NewResolver(db)
	require.NoError(t, err)

	hub := realtime.NewHub()
	engine, err := inventory.NewEngine(db)
	require.NoError(t, err)

	authSvc, err := services.NewAuthService(db, jwtSvc)
	require.NoError(t, err)
	roleSvc, err := services.NewRoleService(db)
	require.NoError(t, err)
	userSvc, err := services.NewUserService(db, roleSvc)
	require.NoError(t, err)
	productSvc, err := services.NewProductService(db, engine)
	require.NoError(t, err)
	categorySvc, err := services.NewCategoryService(db)
	require.NoError(t, err)
	orderSvc, err := services.NewOrderService(db, engine, hub)
	require.NoError(t, err)
	notificationSvc, err := services.NewNotificationService(db, hub)
	require.NoError(t, err)
	settingsSvc, err := services.NewSettingsService(db)
	require.NoError(t, err)
	cartSvc, err := services.NewCartService(db)
	require.NoError(t, err)
	wishlistSvc, err := services.NewWishlistService(db)
	require.NoError(t, err)

	router, err := NewRouter(Dependencies{
		DB:            db,
		JWT:           jwtSvc,
		Resolver:      resolver,
		Hub:           hub,
		Auth:          authSvc,
		Users:         userSvc,
		Roles:         roleSvc,
		Products:      productSvc,
		Categories:    categorySvc,
		Orders:        orderSvc,
		Notifications: notificationSvc,
		Settings:      settingsSvc,
		Carts:         cartSvc,
		Wishlists:     wishlistSvc,
	})
	require.NoError(t, err)

	return db, router, jwtSvc
}

func issueToken(t *testing.T, db *gorm.DB, jwtSvc *iauth.JWTService, email, role string) string {
	t.Helper()

	roleSvc, err := services.NewRoleService(db)
	require.NoError(t, err)
	userSvc, err := services.NewUserService(db, roleSvc)
	require.NoError(t, err)

	user, err := userSvc.Create(context.Background(), services.CreateUserInput{
		Email:    email,
		Password: "router-test-pass",
		Role:     role,
	})
	require.NoError(t, err)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Role: role})
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	_, router, _ := newTestRouter(t)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", "").Code)
	require.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodGet, "/api/auth/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodGet, "/api/users", "").Code)
	require.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/no-such-route", "").Code)
}

func TestRouterPermissionGates(t *testing.T) {
	db, router, jwtSvc := newTestRouter(t)

	adminToken := issueToken(t, db, jwtSvc, "admin@kestrel.dev", "admin")
	customerToken := issueToken(t, db, jwtSvc, "customer@kestrel.dev", "customer")

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/products", adminToken).Code)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/users", adminToken).Code)

	// Customers hold no back-office permissions at all.
	require.Equal(t, http.StatusForbidden, doRequest(router, http.MethodGet, "/api/products", customerToken).Code)
	require.Equal(t, http.StatusForbidden, doRequest(router, http.MethodGet, "/api/users", customerToken).Code)

	// Own-data surfaces need authentication only.
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/cart", customerToken).Code)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/wishlist", customerToken).Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	_, router, _ := newTestRouter(t)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", "").Code)

	rec := doRequest(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "kestrel_api_latency_seconds"))
}
