// Package web serves the control surface and the observer event feed:
// REST routes for discussion and stream control, and a WebSocket endpoint
// that replays a full state snapshot on connect then streams every
// scheduler event.
package web

import (
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/voxlab/go-roundtable/pkg/discussion"
	"github.com/voxlab/go-roundtable/pkg/egress"
	"github.com/voxlab/go-roundtable/pkg/hub"
	"github.com/voxlab/go-roundtable/pkg/live"
	"github.com/voxlab/go-roundtable/pkg/persona"
	"github.com/voxlab/go-roundtable/pkg/tts"
)

// Envelope wraps every event sent over /ws/events.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// HubSink adapts the broadcast hub to the scheduler's EventSink.
type HubSink struct {
	hub *hub.Hub
}

// NewHubSink wraps a hub as an event sink.
func NewHubSink(h *hub.Hub) *HubSink {
	return &HubSink{hub: h}
}

// Publish encodes the event and fans it out. Fire-and-forget: encoding
// failures are dropped, a full hub drops the message, never blocks.
func (s *HubSink) Publish(kind string, payload any) {
	_ = s.hub.BroadcastJSON(Envelope{Type: kind, Data: payload})
}

// Config wires the server's collaborators.
type Config struct {
	Port      string
	Registry  *persona.Registry
	Scheduler *discussion.Scheduler
	Synth     *tts.Synthesizer
	Sink      egress.Sink
	Stream    *egress.Stream
	Live      live.Control
	Events    *hub.Hub
	Logger    *slog.Logger
}

// Server is the HTTP/WebSocket front of the daemon.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	registry  *persona.Registry
	scheduler *discussion.Scheduler
	synth     *tts.Synthesizer
	sink      egress.Sink
	stream    *egress.Stream
	liveCtl   live.Control
	events    *hub.Hub
}

// NewServer builds the fiber app and registers all routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		port:      cfg.Port,
		logger:    cfg.Logger.With("component", "web"),
		registry:  cfg.Registry,
		scheduler: cfg.Scheduler,
		synth:     cfg.Synth,
		sink:      cfg.Sink,
		stream:    cfg.Stream,
		liveCtl:   cfg.Live,
		events:    cfg.Events,
	}

	app := fiber.New(fiber.Config{
		AppName:               "roundtable",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/agents", s.handleAgents)
	api.Get("/stats", s.handleStats)
	api.Post("/discussion/start", s.handleDiscussionStart)
	api.Post("/discussion/stop", s.handleDiscussionStop)
	api.Get("/topic", s.handleGetTopic)
	api.Post("/topic", s.handleSetTopic)
	api.Post("/stream/start", s.handleStreamStart)
	api.Post("/stream/stop", s.handleStreamStop)
	api.Get("/stream/status", s.handleStreamStatus)
	api.Post("/voice/test", s.handleVoiceTest)

	if yt, ok := cfg.Live.(*live.YouTube); ok {
		api.Get("/auth/youtube", s.handleYouTubeAuth(yt))
		api.Get("/auth/youtube/callback", s.handleYouTubeCallback(yt))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start runs the hub loop and blocks serving HTTP.
func (s *Server) Start() error {
	go s.events.Run()
	s.logger.Info("control surface listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Serve runs against an existing listener, used by tests.
func (s *Server) Serve(ln net.Listener) error {
	go s.events.Run()
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
