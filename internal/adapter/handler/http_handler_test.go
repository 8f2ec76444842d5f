package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/production-schedule/internal/adapter/lock"
	"github.com/rl1809/production-schedule/internal/adapter/storage"
	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/core/service"
)

const (
	bikeID     = "6f1f7a5e-2d7b-4c1a-9a43-3f2a9d6f0b11"
	carID      = "0c8e1c2a-55a4-4f57-8d6c-7a1c6b8e2f42"
	unpartedID = "b7c1e0c4-9d0a-4a5b-a1f0-13d2e6a8c9f3"
)

func newTestScheduleService() *service.ScheduleService {
	catalog := storage.NewMemoryCatalog(
		domain.Product{ID: bikeID, Name: "Bike", Parts: []domain.Part{
			{Name: "Frame", UnitQuantity: 1},
			{Name: "Wheel", UnitQuantity: 2},
		}},
		domain.Product{ID: carID, Name: "Car", Parts: []domain.Part{
			{Name: "Engine", UnitQuantity: 1},
		}},
		domain.Product{ID: unpartedID, Name: "Nothing"},
	)
	return service.NewScheduleService(catalog, storage.NewMemoryAdapter(), lock.NewMemoryLocker(5*time.Second), nil,
		service.WithIdempotencyStore(storage.NewMemoryIdempotency()))
}

func newTestRouter() *gin.Engine {
	return NewRouter(NewHTTPHandler(newTestScheduleService(), nil), nil)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSchedule(t *testing.T, w *httptest.ResponseRecorder) ScheduleMessage {
	t.Helper()
	var msg ScheduleMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	return msg
}

func TestHTTP_CreateThenAccumulate(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/production-schedules", gin.H{
		"product_id": bikeID, "scheduled_date": "2024-03-10", "quantity": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeSchedule(t, w)
	assert.Equal(t, "/api/production-schedules/"+created.ID, w.Header().Get("Location"))
	assert.Equal(t, "2024-03-10", created.ScheduledDate)
	assert.Equal(t, "planned", created.Status)
	assert.Equal(t, 3, created.Quantity)
	assert.Nil(t, created.UpdatedAt)

	w = doJSON(t, r, http.MethodPost, "/api/production-schedules", gin.H{
		"product_id": bikeID, "scheduled_date": "2024-03-10", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := decodeSchedule(t, w)
	assert.Equal(t, created.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)
	require.Len(t, merged.Parts, 2)
	assert.Equal(t, 5, merged.Parts[0].Quantity)
	assert.Equal(t, 10, merged.Parts[1].Quantity)
	assert.NotNil(t, merged.UpdatedAt)
}

func TestHTTP_ProductIDFormsShareOneSchedule(t *testing.T) {
	r := newTestRouter()
	forms := []string{
		bikeID,
		strings.ToUpper(bikeID),
		"{" + bikeID + "}",
		"urn:uuid:" + bikeID,
		strings.ReplaceAll(bikeID, "-", ""),
	}

	var ids []string
	for _, form := range forms {
		w := doJSON(t, r, http.MethodPost, "/api/production-schedules", gin.H{
			"product_id": form, "scheduled_date": "2024-03-10", "quantity": 1,
		})
		require.Less(t, w.Code, 300, "%s: %s", form, w.Body.String())
		msg := decodeSchedule(t, w)
		assert.Equal(t, bikeID, msg.ProductID)
		ids = append(ids, msg.ID)
	}

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	w := doJSON(t, r, http.MethodGet, "/api/production-schedules/"+strings.ToUpper(ids[0]), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, len(forms), decodeSchedule(t, w).Quantity)
}

func TestHTTP_CreateDefaultsToToday(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/production-schedules", gin.H{
		"product_id": bikeID, "quantity": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, decodeSchedule(t, w).ScheduledDate)
}

func TestHTTP_CreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"zero quantity", gin.H{"product_id": bikeID, "quantity": 0}, http.StatusBadRequest},
		{"negative quantity", gin.H{"product_id": bikeID, "quantity": -2}, http.StatusBadRequest},
		{"quantity above column range", gin.H{"product_id": bikeID, "quantity": 1 << 40}, http.StatusBadRequest},
		{"missing product", gin.H{"quantity": 1}, http.StatusBadRequest},
		{"malformed product id", gin.H{"product_id": "bike", "quantity": 1}, http.StatusBadRequest},
		{"unknown product", gin.H{"product_id": uuid.NewString(), "quantity": 1}, http.StatusBadRequest},
		{"product without parts", gin.H{"product_id": unpartedID, "quantity": 1}, http.StatusBadRequest},
		{"bad date", gin.H{"product_id": bikeID, "scheduled_date": "10/03/2024", "quantity": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, newTestRouter(), http.MethodPost, "/api/production-schedules", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHTTP_DuplicateRequestID(t *testing.T) {
	r := newTestRouter()
	body := gin.H{"request_id": "req-42", "product_id": bikeID, "scheduled_date": "2024-03-10", "quantity": 1}

	w := doJSON(t, r, http.MethodPost, "/api/production-schedules", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/production-schedules", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHTTP_GetUpdateDelete(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/production-schedules", gin.H{
		"product_id": bikeID, "scheduled_date": "2024-03-10", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeSchedule(t, w).ID

	w = doJSON(t, r, http.MethodGet, "/api/production-schedules/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodeSchedule(t, w).ID)

	w = doJSON(t, r, http.MethodPatch, "/api/production-schedules/"+id+"/status", gin.H{"status": "InProgress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeSchedule(t, w)
	assert.Equal(t, "in_progress", updated.Status)
	assert.Equal(t, 2, updated.Quantity)

	w = doJSON(t, r, http.MethodPatch, "/api/production-schedules/"+id+"/status", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/production-schedules/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/production-schedules/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/production-schedules/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/production-schedules/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTP_ListSchedules(t *testing.T) {
	r := newTestRouter()

	for _, body := range []gin.H{
		{"product_id": carID, "scheduled_date": "2024-03-10", "quantity": 1},
		{"product_id": bikeID, "scheduled_date": "2024-03-10", "quantity": 1},
		{"product_id": bikeID, "scheduled_date": "2024-04-02", "quantity": 1},
	} {
		require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/production-schedules", body).Code)
	}

	list := func(query string) []ScheduleMessage {
		w := doJSON(t, r, http.MethodGet, "/api/production-schedules"+query, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []ScheduleMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	all := list("")
	require.Len(t, all, 3)
	assert.Equal(t, "Bike", all[0].ProductName)
	assert.Equal(t, "Car", all[1].ProductName)
	assert.Equal(t, "2024-04-02", all[2].ScheduledDate)

	march := list("?startDate=2024-03-01&endDate=2024-03-31&status=planned")
	assert.Len(t, march, 2)

	assert.Len(t, list("?scheduledDate=2024-04-02"), 1)
	assert.Empty(t, list("?status=completed"))
	assert.Len(t, list("?limit=1&offset=2"), 1)

	for _, bad := range []string{"?status=shipped", "?limit=-1", "?startDate=yesterday", "?offset=x"} {
		w := doJSON(t, r, http.MethodGet, "/api/production-schedules"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestHTTP_HealthCheck(t *testing.T) {
	w := doJSON(t, newTestRouter(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
