package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasfiat-brain/internal/api/handlers"
	"tasfiat-brain/internal/geo"
	"tasfiat-brain/internal/memory"
	"tasfiat-brain/internal/models"
	"tasfiat-brain/internal/reply"
	"tasfiat-brain/internal/search"
	"tasfiat-brain/internal/service"
	"tasfiat-brain/pkg/config"
	"tasfiat-brain/pkg/middleware"
)

const testToken = "s3cret"

type staticSource struct {
	items []models.KnowledgeItem
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(context.Context) ([]models.KnowledgeItem, error) {
	return s.items, nil
}

type nopMessenger struct{ sent int }

func (m *nopMessenger) CreateMessage(context.Context, int64, string) error {
	m.sent++
	return nil
}

func (m *nopMessenger) SetLabels(context.Context, int64, []string) error { return nil }

func newTestApp(t *testing.T, source service.KnowledgeSource) (*fiber.App, *nopMessenger) {
	t.Helper()
	log := zap.NewNop()
	profile := reply.DefaultProfile()

	knowledge := service.NewKnowledgeService(source, time.Minute, log)
	if source != nil {
		_, err := knowledge.Refresh(context.Background())
		require.NoError(t, err)
	}

	places := geo.NewPlaceIndex(map[string]geo.Zone{"رام الله": geo.ZoneWestBank}, geo.PlacesMeta{Version: "test"})
	mem := memory.New(100, time.Minute)
	engine := search.NewEngine(knowledge, profile.Weights)
	composer := reply.NewComposer(engine, geo.NewClassifier(places, profile.Shipping.Fees), mem, profile)
	queries := service.NewQueryService(knowledge, composer, 2000, log)

	messenger := &nopMessenger{}
	chatwoot, err := service.NewChatwootService(messenger, queries, 100, log)
	require.NoError(t, err)

	app := SetupRouter(
		handlers.NewHealthHandler(knowledge, places, mem),
		handlers.NewSearchHandler(queries, log),
		handlers.NewWebhookHandler(chatwoot, log),
		handlers.NewAdminHandler(knowledge, log),
		&config.ServerConfig{BodyLimit: 1 << 20},
		testToken,
		log,
	)
	return app, messenger
}

func items() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{Slug: "joma-white", Name: "حذاء جوما أبيض", Sizes: "40,41", Price: 199},
		{Slug: "joma-black", Name: "حذاء جوما أسود", Sizes: "42", Price: 249},
	}
}

func do(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, staticSource{items: items()})

	for _, path := range []string{"/", "/health"} {
		status, body := do(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, handlers.ServiceName, body["service"])
		assert.Equal(t, "test", body["places_version"])

		knowledge := body["knowledge"].(map[string]any)
		assert.Equal(t, true, knowledge["configured"])
		assert.Equal(t, float64(2), knowledge["count"])
		assert.NotEmpty(t, knowledge["loaded_at"])
	}
}

func TestSearch(t *testing.T) {
	app, _ := newTestApp(t, staticSource{items: items()})

	status, body := do(t, app, http.MethodPost, "/search", `{"q": "حذاء جوما أبيض"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["found"])
	assert.Contains(t, body["reply"], "حذاء جوما أبيض")

	status, body = do(t, app, http.MethodPost, "/search", `{"query": "جوما", "conversation_id": "web-1"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["found"])
	assert.Contains(t, body["tags"], reply.TagNeedsClarify)

	_, body = do(t, app, http.MethodPost, "/search", `{"q": "2", "conversation_id": "web-1"}`, nil)
	assert.Contains(t, body["reply"], "حذاء جوما أسود")

	status, _ = do(t, app, http.MethodPost, "/search", `{"q":`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSearch_KnowledgeNotConfigured(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodPost, "/search", `{"q": "جوما"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "knowledge_not_configured", body["error"])
}

func TestChatwootWebhook(t *testing.T) {
	app, messenger := newTestApp(t, staticSource{items: items()})
	event := `{"event": "message_created", "id": 91, "content": "حذاء جوما أبيض",
		"message_type": "incoming", "conversation": {"id": 7}}`

	status, _ := do(t, app, http.MethodPost, "/chatwoot/webhook", event, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := do(t, app, http.MethodPost, "/chatwoot/webhook?token="+testToken, event, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["replied"])
	assert.Equal(t, []any{"سعر"}, body["labels"])
	assert.Equal(t, 1, messenger.sent)

	status, body = do(t, app, http.MethodPost, "/chatwoot/webhook", event, map[string]string{middleware.TokenHeader: testToken})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "duplicate", body["ignored"])

	status, body = do(t, app, http.MethodPost, "/chatwoot/webhook?token="+testToken, `not json`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "invalid_payload", body["error"])
}

func TestAdminRefresh(t *testing.T) {
	app, _ := newTestApp(t, staticSource{items: items()})

	status, _ := do(t, app, http.MethodPost, "/admin/knowledge/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := do(t, app, http.MethodPost, "/admin/knowledge/refresh", "", map[string]string{middleware.TokenHeader: testToken})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(2), body["count"])

	empty, _ := newTestApp(t, nil)
	status, body = do(t, empty, http.MethodPost, "/admin/knowledge/refresh", "", map[string]string{middleware.TokenHeader: testToken})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "knowledge_not_configured", body["error"])
}
