package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayamesys/gearbook/api/rest"
	"github.com/ayamesys/gearbook/audit"
	"github.com/ayamesys/gearbook/config"
	"github.com/ayamesys/gearbook/inventory"
	"github.com/ayamesys/gearbook/rental"
	"github.com/ayamesys/gearbook/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	mw "github.com/ayamesys/gearbook/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	events := audit.New(db, logger)
	t.Cleanup(func() { events.Stop(context.Background()) })

	invSvc := inventory.NewService(db, events, logger, config.RentalConfig{})
	rentalSvc := rental.NewService(db, c, events, logger, config.RentalConfig{})

	resH := rest.NewResourceHandler(invSvc)
	bookH := rest.NewBookingHandler(rentalSvc)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api", mw.Actor())
	{
		resG := api.Group("/resources")
		resG.POST("", resH.Create)
		resG.GET("", resH.List)
		resG.GET("/:id", resH.Detail)
		resG.POST("/:id/stock", resH.AddStock)
		resG.PUT("/:id/status", resH.SetStatus)

		bookG := api.Group("/bookings")
		bookG.POST("", bookH.Create)
		bookG.GET("", bookH.List)
		bookG.GET("/conflicts", bookH.Conflicts)
		bookG.PUT("/:id/status", bookH.UpdateStatus)
	}
	return r, db
}

// doJSON performs a request as the given actor and returns the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(mw.ActorIDHeader, actorID)
		req.Header.Set(mw.ActorNameHeader, "Tester")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestResourceCreate(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/resources", "1",
		gin.H{"name": "Camera X", "category": "camera", "count": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	resource := body["resource"].(map[string]interface{})
	assert.Equal(t, "Camera X", resource["name"])
	assert.Equal(t, float64(3), resource["stock_count"])
	assert.Len(t, body["items"].([]interface{}), 3)
}

func TestResourceCreate_Validation(t *testing.T) {
	r, _ := setupRouter(t)

	// Missing actor header.
	w := doJSON(t, r, http.MethodPost, "/api/resources", "", gin.H{"name": "Camera X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing name.
	w = doJSON(t, r, http.MethodPost, "/api/resources", "1", gin.H{"count": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Negative count.
	w = doJSON(t, r, http.MethodPost, "/api/resources", "1", gin.H{"name": "Camera X", "count": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResourceAddStockAndDetail(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/resources", "1",
		gin.H{"name": "Camera X", "category": "camera", "count": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	resourceID := int64(decodeBody(t, w)["resource"].(map[string]interface{})["id"].(float64))

	w = doJSON(t, r, http.MethodPost, "/api/resources/1/stock", "1", gin.H{"count": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items := decodeBody(t, w)["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "003", items[0].(map[string]interface{})["code"])

	w = doJSON(t, r, http.MethodGet, "/api/resources/1", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(resourceID), body["resource"].(map[string]interface{})["id"])
	assert.Len(t, body["items"].([]interface{}), 4)

	w = doJSON(t, r, http.MethodGet, "/api/resources/999", "1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResourceSetStatus(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/resources", "1",
		gin.H{"name": "Camera X", "count": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/resources/1/status", "1", gin.H{"maintenance": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/resources/1", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MAINTENANCE",
		decodeBody(t, w)["resource"].(map[string]interface{})["status"])

	w = doJSON(t, r, http.MethodPut, "/api/resources/1/status", "1", gin.H{"maintenance": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/resources/1", "1", nil)
	assert.Equal(t, "AVAILABLE",
		decodeBody(t, w)["resource"].(map[string]interface{})["status"])
}

func TestResourceList(t *testing.T) {
	r, _ := setupRouter(t)

	for _, name := range []string{"Tripod", "Camera X"} {
		w := doJSON(t, r, http.MethodPost, "/api/resources", "1", gin.H{"name": name, "count": 1})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/resources", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resources := decodeBody(t, w)["resources"].([]interface{})
	require.Len(t, resources, 2)
	assert.Equal(t, "Camera X", resources[0].(map[string]interface{})["name"])
}
