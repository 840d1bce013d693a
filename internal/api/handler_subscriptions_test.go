package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionRouter() *gin.Engine {
	r := gin.Default()
	handler := NewHandler(nil, Options{})
	r.PUT("/api/subscriptions", handler.PutSubscription)
	return r
}

func TestPutSubscription(t *testing.T) {
	router := setupSubscriptionRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	r := newTestRouter(t, newTestStore(t), Options{})
	endpoint := "https://push.example.com/send/abc=="

	sub := gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret",
		"north": -33.80, "south": -33.90, "east": 151.25, "west": 151.15,
	}
	w := doJSON(r, http.MethodPut, "/api/subscriptions", sub)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// replacing the area keeps a single row
	sub["filter"] = "2p"
	sub["north"] = -33.70
	w = doJSON(r, http.MethodPut, "/api/subscriptions", sub)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"north":-33.7,"south":-33.9,"east":151.25,"west":151.15,"filter":"2P"}`, w.Body.String())

	w = doJSON(r, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/subscriptions?endpoint="+url.QueryEscape("unknown"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(r, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutSubscription_Validation(t *testing.T) {
	r := newTestRouter(t, nil, Options{})

	for name, body := range map[string]gin.H{
		"Missing bounds": {"endpoint": "e", "p256dh": "k", "auth": "a"},
		"South above north": {"endpoint": "e", "p256dh": "k", "auth": "a",
			"north": 0, "south": 1, "east": 1, "west": 0},
		"Unknown filter": {"endpoint": "e", "p256dh": "k", "auth": "a",
			"north": 1, "south": 0, "east": 1, "west": 0, "filter": "3P"},
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(r, http.MethodPut, "/api/subscriptions", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetSubscription_RequiresEndpoint(t *testing.T) {
	r := newTestRouter(t, nil, Options{})
	w := doJSON(r, http.MethodGet, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	r := newTestRouter(t, nil, Options{Webpush: &webpush.Options{VAPIDPublicKey: "BPub"}})
	w := doJSON(r, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPub"}`, w.Body.String())

	r = newTestRouter(t, nil, Options{})
	w = doJSON(r, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
