package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

type validatorStub struct{}

func (validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin":
		return &models.JWTClaims{Username: "coord", Role: models.RoleAdmin}, nil
	case "guest":
		return &models.JWTClaims{Username: "guest", Role: "guest"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type observation struct {
	method, path string
	status       int
}

type observerStub struct{ seen []observation }

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.seen = append(o.seen, observation{method: method, path: path, status: status})
}

func serve(r *gin.Engine, method, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", JWT(validatorStub{}), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c).Username)
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic admin", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer guest", http.StatusForbidden},
		{"admin", "Bearer admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/admin", tc.header)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "").Code)
}

func TestAuditLogsOnlySuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.DELETE("/aulas/:id", JWT(validatorStub{}), Audit(zap.New(core), "schedule.delete"), func(c *gin.Context) {
		if c.Param("id") == "broken" {
			c.Status(http.StatusBadGateway)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodDelete, "/aulas/42", "Bearer admin")
	serve(r, http.MethodDelete, "/aulas/broken", "Bearer admin")

	entries := logs.FilterMessage("dataset mutation").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "schedule.delete", fields["action"])
	assert.Equal(t, "coord", fields["actor"])
	assert.Equal(t, "42", fields["resource_id"])
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &observerStub{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/aulas/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/aulas/7", "")
	serve(r, http.MethodGet, "/wp-login.php", "")

	require.Len(t, obs.seen, 2)
	assert.Equal(t, "/aulas/:id", obs.seen[0].path)
	assert.Equal(t, "unmatched", obs.seen[1].path)
	assert.Equal(t, http.StatusNotFound, obs.seen[1].status)
}
