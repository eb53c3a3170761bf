package http_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	accesshttp "scl90-gate/internal/access/adapter/http"
	"scl90-gate/internal/access/adapter/persistence/memory"
	"scl90-gate/internal/access/adapter/security"
	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/testutil"
	"scl90-gate/internal/access/usecase"
	"scl90-gate/internal/shared/eventbus"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeedServer(t *testing.T) (string, *accesshttp.ActivityFeed, *eventbus.EventBus) {
	t.Helper()
	cfg := testutil.TestConfig()
	repo := memory.NewAccessRepository()
	tokens, err := security.NewAdminTokenService(cfg)
	require.NoError(t, err)

	bus := eventbus.NewEventBus(nil)
	admin := usecase.NewAdminUsecase(repo, tokens, cfg, usecase.WithPublisher(bus))
	feed := accesshttp.NewActivityFeed(nil)
	feed.Attach(bus)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	mw := accesshttp.NewAccessMiddleware(admin, cfg.AdminHeader)
	accesshttp.NewAdminHTTPHandler(admin, usecase.NewActivityUsecase(nil), feed).RegisterRoutes(app, mw)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		feed.Close()
		_ = app.Shutdown()
	})

	return fmt.Sprintf("ws://%s/admin/events", ln.Addr().String()), feed, bus
}

func TestActivityFeed_StreamsEvents(t *testing.T) {
	url, feed, bus := startFeedServer(t)

	header := http.Header{}
	header.Set("X-Admin-Password", adminSecret)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var greeting accesshttp.FeedMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "connected", greeting.Type)
	require.Eventually(t, func() bool { return feed.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeAccessCodeCreated, &model.Activity{
		Code:       "LIVE1",
		Source:     "admin",
		OccurredAt: testutil.BaseTime,
	}, "admin")))

	var msg struct {
		Type string         `json:"type"`
		Data model.Activity `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "activity", msg.Type)
	assert.Equal(t, eventbus.EventTypeAccessCodeCreated, msg.Data.Type)
	assert.Equal(t, "LIVE1", msg.Data.Code)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return feed.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestActivityFeed_RejectsUnauthenticated(t *testing.T) {
	url, _, _ := startFeedServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestActivityFeed_TokenQueryParameter(t *testing.T) {
	url, _, _ := startFeedServer(t)

	cfg := testutil.TestConfig()
	tokens, err := security.NewAdminTokenService(cfg)
	require.NoError(t, err)
	token, _, err := tokens.Issue("admin")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting accesshttp.FeedMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "connected", greeting.Type)
}

func TestActivityFeed_IgnoresForeignPayloads(t *testing.T) {
	feed := accesshttp.NewActivityFeed(nil)
	assert.NoError(t, feed.HandleEvent(context.Background(), eventbus.NewBasicEvent("other", 42, "test")))
}
