package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-sign-backend/config"
	"parking-sign-backend/internal/db"
	"parking-sign-backend/internal/ingest"
	"parking-sign-backend/internal/model"
	"parking-sign-backend/internal/query"
	"parking-sign-backend/internal/rules"
	"parking-sign-backend/internal/store"
)

type fakeIngester struct {
	spot  *model.ParkingSpot
	err   error
	image []byte
	lat   float64
	lng   float64
}

func (f *fakeIngester) Ingest(ctx context.Context, image []byte, lat, lng float64) (*model.ParkingSpot, error) {
	f.image, f.lat, f.lng = image, lat, lng
	return f.spot, f.err
}

type fakeQuerier struct {
	spots  []model.ParkingSpot
	err    error
	bounds store.Bounds
	filter string
	calls  int
}

func (f *fakeQuerier) Query(ctx context.Context, b store.Bounds, filter string) ([]model.ParkingSpot, error) {
	f.calls++
	f.bounds, f.filter = b, filter
	return f.spots, f.err
}

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

// newTestStore opens a fresh in-memory sqlite database per test.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

func newTestRouter(t *testing.T, s store.Store, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(s, opts, time.Minute)
}

func doJSON(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadParkingPlate(t *testing.T) {
	stored := &model.ParkingSpot{
		ID: "spot-1", Latitude: -33.8688, Longitude: 151.2093, ImageURL: "placeholder",
		Description: strPtr("2P meter"),
		Periods:     []model.ParkingPeriod{{ID: 1, SpotID: "spot-1", TimeLimitMins: intPtr(120), PaymentType: "METERED", DaysOfWeek: []string{"MON"}}},
	}
	encoded := base64.StdEncoding.EncodeToString(pngImage)

	testCases := []struct {
		name      string
		body      any
		ingester  *fakeIngester
		status    int
		reason    string
		retryable bool
	}{
		{
			name:     "Stored spot is returned",
			body:     gin.H{"image": "data:image/png;base64," + encoded, "latitude": -33.8688, "longitude": 151.2093},
			ingester: &fakeIngester{spot: stored},
			status:   http.StatusCreated,
		},
		{
			name:     "Missing coordinates",
			body:     gin.H{"image": encoded},
			ingester: &fakeIngester{},
			status:   http.StatusBadRequest,
		},
		{
			name:     "Image is not base64",
			body:     gin.H{"image": "%%%", "latitude": 1, "longitude": 1},
			ingester: &fakeIngester{},
			status:   http.StatusBadRequest,
			reason:   "InvalidImage",
		},
		{
			name:     "Payload is not an image",
			body:     gin.H{"image": base64.StdEncoding.EncodeToString([]byte("hello world")), "latitude": 1, "longitude": 1},
			ingester: &fakeIngester{},
			status:   http.StatusBadRequest,
			reason:   "InvalidImage",
		},
		{
			name:     "Invalid coordinates",
			body:     gin.H{"image": encoded, "latitude": 100, "longitude": 1},
			ingester: &fakeIngester{err: &ingest.IngestionError{Reason: ingest.ReasonInvalidCoordinates}},
			status:   http.StatusBadRequest,
			reason:   "InvalidCoordinates",
		},
		{
			name:     "Not a parking sign",
			body:     gin.H{"image": encoded, "latitude": 1, "longitude": 1},
			ingester: &fakeIngester{err: &ingest.IngestionError{Reason: ingest.ReasonNotAParkingSign}},
			status:   http.StatusUnprocessableEntity,
			reason:   "NotAParkingSign",
		},
		{
			name:     "Schema violation",
			body:     gin.H{"image": encoded, "latitude": 1, "longitude": 1},
			ingester: &fakeIngester{err: &ingest.IngestionError{Reason: ingest.ReasonSchemaViolation}},
			status:   http.StatusUnprocessableEntity,
			reason:   "SchemaViolation",
		},
		{
			name:      "Interpreter unavailable",
			body:      gin.H{"image": encoded, "latitude": 1, "longitude": 1},
			ingester:  &fakeIngester{err: &ingest.IngestionError{Reason: ingest.ReasonInterpreterUnavailable, Err: errors.New("timeout")}},
			status:    http.StatusServiceUnavailable,
			reason:    "InterpreterUnavailable",
			retryable: true,
		},
		{
			name:     "Store failure",
			body:     gin.H{"image": encoded, "latitude": 1, "longitude": 1},
			ingester: &fakeIngester{err: errors.New("connection reset")},
			status:   http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, nil, Options{Ingester: tc.ingester, Spots: &fakeQuerier{}})
			w := doJSON(r, http.MethodPost, "/api/parking/plates", tc.body)
			require.Equal(t, tc.status, w.Code, w.Body.String())

			if tc.status == http.StatusCreated {
				var got model.ParkingSpot
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, "spot-1", got.ID)
				assert.Equal(t, pngImage, tc.ingester.image)
				assert.Equal(t, -33.8688, tc.ingester.lat)
				assert.Equal(t, 151.2093, tc.ingester.lng)
				return
			}
			if tc.reason != "" {
				var got errorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, tc.reason, got.Reason)
				assert.Equal(t, tc.retryable, got.Retryable)
				assert.NotEmpty(t, got.Error)
			}
		})
	}
}

func TestUploadParkingPlate_TooLarge(t *testing.T) {
	r := newTestRouter(t, nil, Options{Ingester: &fakeIngester{}, Spots: &fakeQuerier{}, MaxUploadBytes: 64})
	w := doJSON(r, http.MethodPost, "/api/parking/plates", gin.H{"image": base64.StdEncoding.EncodeToString(bytes.Repeat(pngImage, 10)), "latitude": 1, "longitude": 1})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadParkingPlate_FlushesSpotCache(t *testing.T) {
	querier := &fakeQuerier{spots: []model.ParkingSpot{}}
	ingester := &fakeIngester{spot: &model.ParkingSpot{ID: "spot-1"}}
	r := newTestRouter(t, nil, Options{Ingester: ingester, Spots: querier})

	target := "/api/parking/spots?north=1&south=0&east=1&west=0"
	doJSON(r, http.MethodGet, target, nil)
	doJSON(r, http.MethodGet, target, nil)
	assert.Equal(t, 1, querier.calls)

	w := doJSON(r, http.MethodPost, "/api/parking/plates", gin.H{"image": base64.StdEncoding.EncodeToString(pngImage), "latitude": 0.5, "longitude": 0.5})
	require.Equal(t, http.StatusCreated, w.Code)

	doJSON(r, http.MethodGet, target, nil)
	assert.Equal(t, 2, querier.calls)
}

func TestGetParkingSpots(t *testing.T) {
	t.Run("Passes bounds and filter to the query service", func(t *testing.T) {
		querier := &fakeQuerier{spots: []model.ParkingSpot{{ID: "a", Periods: []model.ParkingPeriod{}}}}
		r := newTestRouter(t, nil, Options{Spots: querier})

		w := doJSON(r, http.MethodGet, "/api/parking/spots?north=-33.80&south=-33.90&east=151.25&west=151.15&filter=2P", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, store.Bounds{North: -33.80, South: -33.90, East: 151.25, West: 151.15}, querier.bounds)
		assert.Equal(t, "2P", querier.filter)

		var got []model.ParkingSpot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ID)
	})

	t.Run("Empty result is an empty array", func(t *testing.T) {
		r := newTestRouter(t, nil, Options{Spots: &fakeQuerier{spots: []model.ParkingSpot{}}})
		w := doJSON(r, http.MethodGet, "/api/parking/spots?north=1&south=0&east=1&west=0", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	for name, tc := range map[string]struct {
		target string
		err    error
		status int
	}{
		"Missing edge":   {"/api/parking/spots?north=1&south=0&east=1", nil, http.StatusBadRequest},
		"Edge not float": {"/api/parking/spots?north=abc&south=0&east=1&west=0", nil, http.StatusBadRequest},
		"Invalid bounds": {"/api/parking/spots?north=0&south=1&east=1&west=0", query.ErrInvalidBounds, http.StatusBadRequest},
		"Unknown filter": {"/api/parking/spots?north=1&south=0&east=1&west=0&filter=3P", rules.ErrUnknownFilter, http.StatusBadRequest},
		"Store failure":  {"/api/parking/spots?north=1&south=0&east=1&west=0", errors.New("db down"), http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			r := newTestRouter(t, nil, Options{Spots: &fakeQuerier{err: tc.err}})
			w := doJSON(r, http.MethodGet, tc.target, nil)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, newTestStore(t), Options{})
	w := doJSON(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
