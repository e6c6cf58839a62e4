package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenPair(t *testing.T) {
	access, refresh, err := GenerateTokenPair(7, "a@b.c", model.RoleAdmin)
	require.NoError(t, err)

	claims, err := ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.Subject)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	claims, err = ParseToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Subject)

	_, err = ParseToken(access + "x")
	assert.Error(t, err)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	r.GET("/admin", JWTAuth(), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/optional", OptionalAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newAuthRouter()
	customer, refresh, err := GenerateTokenPair(1, "c@x.io", model.RoleCustomer)
	require.NoError(t, err)
	admin, err := GenerateAccessToken(2, "a@x.io", model.RoleAdmin)
	require.NoError(t, err)

	t.Run("无 token", func(t *testing.T) {
		w := doGet(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"error"`)
	})

	t.Run("refresh token 不能访问接口", func(t *testing.T) {
		w := doGet(r, "/me", refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("access token", func(t *testing.T) {
		w := doGet(r, "/me", customer)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":1}`, w.Body.String())
	})

	t.Run("角色校验", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, doGet(r, "/admin", customer).Code)
		assert.Equal(t, http.StatusNoContent, doGet(r, "/admin", admin).Code)
	})

	t.Run("可选认证", func(t *testing.T) {
		assert.JSONEq(t, `{"user_id":0}`, doGet(r, "/optional", "").Body.String())
		assert.JSONEq(t, `{"user_id":0}`, doGet(r, "/optional", "garbage").Body.String())
		assert.JSONEq(t, `{"user_id":1}`, doGet(r, "/optional", customer).Body.String())
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 2)
	r := gin.New()
	r.POST("/login", rl.Middleware("auth"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// 其他 IP 不受影响
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, rl.Size())
	assert.Equal(t, 2, rl.Cleanup(-time.Second))
	assert.Equal(t, 0, rl.Size())
}

func TestMetrics(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(MetricsHandler()))

	doGet(r, "/ping/1", "")
	doGet(r, "/ping/2", "")
	RecordWebhookEvent("paid")
	RecordOrderCreated()

	body := doGet(r, "/metrics", "").Body.String()
	assert.Contains(t, body, `storefront_http_requests_total{method="GET",path="/ping/:id",status="200"} 2`)
	assert.Contains(t, body, `storefront_webhook_events_total{result="paid"} 1`)
	assert.Contains(t, body, "storefront_orders_created_total 1")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := doGet(r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type req struct {
		Slug  string `json:"slug" binding:"omitempty,slug"`
		Color string `json:"color" binding:"omitempty,hexcolor6"`
	}
	r := gin.New()
	r.POST("/v", func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	post := func(body string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v", strings.NewReader(body)))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, post(`{"slug":"black-tee","color":"#fff"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"slug":"Black Tee"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"color":"red"}`))
}

func TestAuditCallbacks(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, RegisterAuditCallbacks(db))

	ctx := WithAuditInfo(context.Background(), 42, "admin@x.io")
	cat := model.Category{Name: "C", Slug: "c", IsActive: true}
	require.NoError(t, db.WithContext(ctx).Create(&cat).Error)

	p := model.Product{CategoryID: cat.ID, Name: "P", Slug: "p", Price: 100, IsActive: true}
	require.NoError(t, db.WithContext(ctx).Create(&p).Error)
	assert.Equal(t, int64(42), p.CreatedBy)
	assert.Equal(t, int64(42), p.UpdatedBy)

	other := WithAuditInfo(context.Background(), 43, "other@x.io")
	require.NoError(t, db.WithContext(other).Model(&model.Product{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{"name": "P2"}).Error)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, "P2", got.Name)
	assert.Equal(t, int64(42), got.CreatedBy)
	assert.Equal(t, int64(43), got.UpdatedBy)
}
