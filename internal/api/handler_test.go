package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"push-relay-backend/config"
	"push-relay-backend/internal/db"
	"push-relay-backend/internal/keys"
	"push-relay-backend/internal/store"
)

const testDevice = "deadbeef-0000-1111-2222-333333333333"

// newTestRouter builds the full router over an in-memory database. The
// rate limit is set high enough for rapid-fire test requests.
func newTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 10000
	cfg.Server.RateLimitBurst = 10000
	cfg.Server.CacheTTLSeconds = 1
	cfg.Dispatch.MQTTBrokerAddress = "broker.example.com:1883"

	return NewRouter(s, nil, cfg), s
}

func doForm(r *gin.Engine, method, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func doDelete(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

// errID extracts the numeric error id from the error envelope.
func errID(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	body := decodeBody(t, w)
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got: %s", w.Body.String())
	return int(envelope["id"].(float64))
}

func createService(t *testing.T, r *gin.Engine, name string) (public, secret string) {
	t.Helper()
	w := doForm(r, http.MethodPost, "/service", url.Values{"name": {name}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc := decodeBody(t, w)["service"].(map[string]any)
	return svc["public"].(string), svc["secret"].(string)
}

func TestServiceEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	// Missing name.
	w := doForm(r, http.MethodPost, "/service", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 7, errID(t, w))

	public, secret := createService(t, r, "My Service")
	assert.True(t, keys.ValidPublic(public))
	assert.True(t, keys.ValidSecret(secret))

	// Lookup by public key never reveals the secret.
	w = doGet(r, "/service?service="+public)
	require.Equal(t, http.StatusOK, w.Code)
	svc := decodeBody(t, w)["service"].(map[string]any)
	assert.Equal(t, "My Service", svc["name"])
	assert.NotContains(t, svc, "secret")

	// Lookup by secret echoes the secret back.
	w = doGet(r, "/service?secret="+secret)
	require.Equal(t, http.StatusOK, w.Code)
	svc = decodeBody(t, w)["service"].(map[string]any)
	assert.Equal(t, secret, svc["secret"])

	// Malformed keys are rejected before any lookup.
	w = doGet(r, "/service?service=not-a-key")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 2, errID(t, w))

	w = doGet(r, "/service?secret=short")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, errID(t, w))

	// Well-formed but unknown key.
	ghost, err := keys.GeneratePublic()
	require.NoError(t, err)
	w = doGet(r, "/service?service="+ghost)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 6, errID(t, w))

	// Rename.
	w = doForm(r, http.MethodPatch, "/service?secret="+secret, url.Values{"name": {"Renamed"}})
	require.Equal(t, http.StatusOK, w.Code)
	svc = decodeBody(t, w)["service"].(map[string]any)
	assert.Equal(t, "Renamed", svc["name"])

	// Delete, then the service is gone.
	w = doDelete(r, "/service?secret="+secret)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doGet(r, "/service?service="+public)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 6, errID(t, w))
}

func TestSubscriptionEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	public, _ := createService(t, r, "Subbable")

	// Missing and malformed arguments.
	w := doForm(r, http.MethodPost, "/subscription", url.Values{"service": {public}})
	assert.Equal(t, 7, errID(t, w))

	w = doForm(r, http.MethodPost, "/subscription", url.Values{"uuid": {"not-a-uuid"}, "service": {public}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, errID(t, w))

	w = doForm(r, http.MethodPost, "/subscription", url.Values{"uuid": {testDevice}, "service": {"garbage"}})
	assert.Equal(t, 2, errID(t, w))

	// Subscribe.
	w = doForm(r, http.MethodPost, "/subscription", url.Values{"uuid": {testDevice}, "service": {public}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decodeBody(t, w)["subscription"].(map[string]any)
	assert.Equal(t, testDevice, sub["uuid"])
	assert.Equal(t, public, sub["service"].(map[string]any)["public"])

	// Subscribing twice is a conflict.
	w = doForm(r, http.MethodPost, "/subscription", url.Values{"uuid": {testDevice}, "service": {public}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 4, errID(t, w))

	// Listing.
	w = doGet(r, "/subscription?uuid="+testDevice)
	require.Equal(t, http.StatusOK, w.Code)
	subs := decodeBody(t, w)["subscriptions"].([]any)
	assert.Len(t, subs, 1)

	// Unsubscribe once, then again.
	w = doDelete(r, "/subscription?uuid="+testDevice+"&service="+public)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doDelete(r, "/subscription?uuid="+testDevice+"&service="+public)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 11, errID(t, w))

	// Empty list renders as [], not null.
	w = doGet(r, "/subscription?uuid="+testDevice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscriptions":[]`)
}

func TestMessageEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	public, secret := createService(t, r, "Newsfeed")

	// History before the subscription stays invisible.
	w := doForm(r, http.MethodPost, "/message", url.Values{"secret": {secret}, "message": {"before"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doForm(r, http.MethodPost, "/subscription", url.Values{"uuid": {testDevice}, "service": {public}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doGet(r, "/message?uuid="+testDevice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"messages":[]`)

	// Publish after the subscription.
	w = doForm(r, http.MethodPost, "/message", url.Values{
		"secret":  {secret},
		"message": {"first"},
		"title":   {"Hello"},
		"level":   {"2"},
		"link":    {"https://example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = doForm(r, http.MethodPost, "/message", url.Values{"secret": {secret}, "message": {"second"}})
	require.Equal(t, http.StatusOK, w.Code)

	// Poll: both messages, oldest first, with the rendered service attached.
	w = doGet(r, "/message?uuid="+testDevice)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decodeBody(t, w)["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "first", first["message"])
	assert.Equal(t, "Hello", first["title"])
	assert.Equal(t, float64(2), first["level"])
	assert.Equal(t, public, first["service"].(map[string]any)["public"])
	assert.Equal(t, "second", msgs[1].(map[string]any)["message"])

	// Polling consumed the window.
	w = doGet(r, "/message?uuid="+testDevice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"messages":[]`)

	// Mark-read swallows anything new and is idempotent.
	w = doForm(r, http.MethodPost, "/message", url.Values{"secret": {secret}, "message": {"third"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, doDelete(r, "/message?uuid="+testDevice).Code)
	assert.Equal(t, http.StatusOK, doDelete(r, "/message?uuid="+testDevice).Code)
	w = doGet(r, "/message?uuid="+testDevice)
	assert.Contains(t, w.Body.String(), `"messages":[]`)

	// An unparseable level does not fail the publish, it defaults to 0.
	w = doForm(r, http.MethodPost, "/message", url.Values{
		"secret":  {secret},
		"message": {"fourth"},
		"level":   {"loud"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = doGet(r, "/message?uuid="+testDevice)
	require.Equal(t, http.StatusOK, w.Code)
	msgs = decodeBody(t, w)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, float64(0), msgs[0].(map[string]any)["level"])

	// Publish validation.
	w = doForm(r, http.MethodPost, "/message", url.Values{"secret": {secret}})
	assert.Equal(t, 7, errID(t, w))

	w = doForm(r, http.MethodPost, "/message", url.Values{"secret": {"bogus"}, "message": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, errID(t, w))

	ghostSecret, err := keys.GenerateSecret()
	require.NoError(t, err)
	w = doForm(r, http.MethodPost, "/message", url.Values{"secret": {ghostSecret}, "message": {"x"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 6, errID(t, w))
}

func TestGatewayRegistrationEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doForm(r, http.MethodPost, "/gcm", url.Values{"uuid": {testDevice}})
	assert.Equal(t, 7, errID(t, w))

	w = doForm(r, http.MethodPost, "/gcm", url.Values{"uuid": {testDevice}, "regId": {"token-1"}})
	assert.Equal(t, http.StatusOK, w.Code)

	// The uuid may arrive in the form body or the query string.
	w = doForm(r, http.MethodDelete, "/gcm", url.Values{"uuid": {testDevice}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doDelete(r, "/gcm?uuid="+testDevice)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 12, errID(t, w))
}

func TestMqttEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doForm(r, http.MethodPost, "/mqtt", url.Values{"uuid": {testDevice}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doGet(r, "/mqtt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "broker.example.com:1883", decodeBody(t, w)["broker_address"])

	// The broker address response is cached; a second read still works.
	w = doGet(r, "/mqtt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "broker.example.com:1883", decodeBody(t, w)["broker_address"])

	w = doDelete(r, "/mqtt?uuid="+testDevice)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doDelete(r, "/mqtt?uuid="+testDevice)
	assert.Equal(t, 12, errID(t, w))
}

func TestWebPushEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doForm(r, http.MethodPost, "/webpush", url.Values{"uuid": {testDevice}, "endpoint": {"https://push.example/ep"}})
	assert.Equal(t, 7, errID(t, w))

	w = doForm(r, http.MethodPost, "/webpush", url.Values{
		"uuid":     {testDevice},
		"endpoint": {"https://push.example/ep"},
		"p256dh":   {"key"},
		"auth":     {"auth"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doDelete(r, "/webpush?uuid="+testDevice)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doDelete(r, "/webpush?uuid="+testDevice)
	assert.Equal(t, 12, errID(t, w))
}

func TestRateLimiting(t *testing.T) {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 0.001
	cfg.Server.RateLimitBurst = 2
	cfg.Server.CacheTTLSeconds = 1
	r := NewRouter(store.NewGormStore(gormDB), nil, cfg)

	// The burst allows two requests, the third is rejected.
	assert.Equal(t, http.StatusOK, doGet(r, "/mqtt").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/mqtt").Code)

	w := doGet(r, "/subscription?uuid="+testDevice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 5, errID(t, w))
}
