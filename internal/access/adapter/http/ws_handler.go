package http

import (
	"context"
	"sync"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/usecase"
	"scl90-gate/internal/shared/eventbus"
	"scl90-gate/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	feedBufferSize = 64
	feedReadLimit  = 512
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

// FeedMessage is written to admin websocket clients
type FeedMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type feedClient struct {
	id   string
	conn *websocket.Conn
	send chan *model.Activity
}

// ActivityFeed fans bus events out to connected admin websockets
type ActivityFeed struct {
	mu      sync.RWMutex
	clients map[string]*feedClient
	log     logger.Logger
}

// NewActivityFeed creates an empty feed
func NewActivityFeed(log logger.Logger) *ActivityFeed {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ActivityFeed{
		clients: make(map[string]*feedClient),
		log:     log.WithComponent("activity_feed"),
	}
}

// Attach subscribes the feed to every event on bus
func (f *ActivityFeed) Attach(bus *eventbus.EventBus) {
	bus.Subscribe(eventbus.AllEvents, f.HandleEvent)
}

// HandleEvent is an eventbus.Handler
func (f *ActivityFeed) HandleEvent(ctx context.Context, event eventbus.Event) error {
	activity, err := usecase.ActivityFromEvent(event)
	if err != nil {
		return nil
	}
	f.broadcast(activity)
	return nil
}

// broadcast never blocks the publisher; slow clients lose messages
func (f *ActivityFeed) broadcast(activity *model.Activity) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, client := range f.clients {
		select {
		case client.send <- activity:
		default:
			f.log.Warnf("Dropping activity for slow subscriber %s", client.id)
		}
	}
}

// RequireUpgrade rejects plain HTTP requests to a websocket route
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler returns the websocket endpoint
func (f *ActivityFeed) Handler() fiber.Handler {
	return websocket.New(f.serve)
}

func (f *ActivityFeed) serve(conn *websocket.Conn) {
	client := &feedClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan *model.Activity, feedBufferSize),
	}

	if err := conn.WriteJSON(FeedMessage{Type: "connected", Data: fiber.Map{"subscriberId": client.id}}); err != nil {
		return
	}
	f.register(client)
	f.log.Infof("Activity subscriber connected: %s", client.id)

	done := make(chan struct{})
	go f.writeLoop(client, done)

	conn.SetReadLimit(feedReadLimit)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.log.Warnf("Subscriber %s closed unexpectedly: %v", client.id, err)
			}
			break
		}
	}

	f.unregister(client)
	<-done
	f.log.Infof("Activity subscriber disconnected: %s", client.id)
}

// writeLoop is the only writer on the connection after the greeting
func (f *ActivityFeed) writeLoop(client *feedClient, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case activity, ok := <-client.send:
			if !ok {
				return
			}
			if err := client.conn.WriteJSON(FeedMessage{Type: "activity", Data: activity}); err != nil {
				f.log.Debugf("Write to subscriber %s failed: %v", client.id, err)
				_ = client.conn.Close()
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				_ = client.conn.Close()
				return
			}
		}
	}
}

func (f *ActivityFeed) register(client *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[client.id] = client
}

func (f *ActivityFeed) unregister(client *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[client.id]; ok {
		delete(f.clients, client.id)
		close(client.send)
	}
}

// ClientCount returns the number of connected subscribers
func (f *ActivityFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every subscriber
func (f *ActivityFeed) Close() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, client := range f.clients {
		_ = client.conn.Close()
	}
}
