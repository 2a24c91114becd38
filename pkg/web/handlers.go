package web

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/voxlab/go-roundtable/pkg/discussion"
	"github.com/voxlab/go-roundtable/pkg/egress"
	"github.com/voxlab/go-roundtable/pkg/hub"
	"github.com/voxlab/go-roundtable/pkg/live"
	"github.com/voxlab/go-roundtable/pkg/tts"
)

// handleHealth reports liveness and degraded-mode flags.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "ok",
		"tts_degraded": s.synth.Degraded(),
		"observers":    s.events.ClientCount(),
	})
}

// handleAgents returns the persona roster.
func (s *Server) handleAgents(c *fiber.Ctx) error {
	return c.JSON(s.registry.All())
}

// handleStats returns the aggregate discussion counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.scheduler.Snapshot().Stats)
}

// handleDiscussionStart enables the loop. Idempotent: starting an
// already-running discussion reports success:false, not an error.
func (s *Server) handleDiscussionStart(c *fiber.Ctx) error {
	started := s.scheduler.Start()
	msg := "discussion started"
	if !started {
		msg = "discussion already running"
	}
	return c.JSON(fiber.Map{"success": started, "message": msg})
}

// handleDiscussionStop requests a cooperative stop at the next turn
// boundary.
func (s *Server) handleDiscussionStop(c *fiber.Ctx) error {
	stopped := s.scheduler.Stop()
	msg := "discussion stopping"
	if !stopped {
		msg = "discussion not running"
	}
	return c.JSON(fiber.Map{"success": stopped, "message": msg})
}

// handleGetTopic returns the current topic.
func (s *Server) handleGetTopic(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"topic": s.scheduler.State().Topic()})
}

// topicRequest is the optional body of POST /api/topic.
type topicRequest struct {
	Topic string `json:"topic"`
}

// handleSetTopic forces a topic change, random when no override given.
func (s *Server) handleSetTopic(c *fiber.Ctx) error {
	var req topicRequest
	_ = c.BodyParser(&req)

	topic := s.scheduler.ForceTopic(req.Topic)
	return c.JSON(fiber.Map{"success": true, "topic": topic})
}

// streamStartRequest is the body of POST /api/stream/start.
type streamStartRequest struct {
	StreamKey   string `json:"stream_key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
}

// handleStreamStart opens a broadcast on the live platform and points
// the ffmpeg egress at its ingest URL.
func (s *Server) handleStreamStart(c *fiber.Ctx) error {
	var req streamStartRequest
	_ = c.BodyParser(&req)

	info, err := s.liveCtl.Start(c.Context(), live.StartOptions{
		Title:       req.Title,
		Description: req.Description,
		Privacy:     req.Privacy,
		StreamKey:   req.StreamKey,
	})
	if err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, live.ErrNoPlatform) || errors.Is(err, live.ErrNoStreamKey) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	if err := s.stream.Start(c.Context(), info.IngestURL); err != nil {
		if stopErr := s.liveCtl.Stop(c.Context()); stopErr != nil {
			s.logger.Warn("broadcast rollback failed", "error", stopErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"broadcast_id": info.BroadcastID,
		"watch_url":    info.WatchURL,
	})
}

// handleStreamStop stops egress and completes the remote broadcast.
func (s *Server) handleStreamStop(c *fiber.Ctx) error {
	var errs []string
	if err := s.stream.Stop(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.liveCtl.Stop(c.Context()); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"errors":  errs,
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// handleStreamStatus reports egress and platform state together.
func (s *Server) handleStreamStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stream":   s.stream.Status(),
		"platform": s.liveCtl.Status(),
	})
}

// voiceTestRequest is the body of POST /api/voice/test.
type voiceTestRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// handleVoiceTest synthesizes arbitrary text with a chosen voice and
// pushes it to the egress sink.
func (s *Server) handleVoiceTest(c *fiber.Ctx) error {
	var req voiceTestRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "text is required",
		})
	}
	if req.Voice != "" && !tts.IsKnownVoice(req.Voice) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "unknown voice: " + req.Voice,
			"voices":  tts.VoiceIDs(),
		})
	}

	artifact, err := s.synth.Speak(c.Context(), req.Text, req.Voice)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	duration, err := s.sink.Emit(c.Context(), egress.Utterance{
		Text:      req.Text,
		AudioPath: artifact.Path,
		Duration:  artifact.Duration,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"cached":           artifact.Cached,
		"duration_seconds": duration.Seconds(),
	})
}

// handleYouTubeAuth redirects to the OAuth consent screen.
func (s *Server) handleYouTubeAuth(yt *live.YouTube) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Redirect(yt.AuthURL(), fiber.StatusTemporaryRedirect)
	}
}

// handleYouTubeCallback finishes the OAuth flow.
func (s *Server) handleYouTubeCallback(yt *live.YouTube) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Query("code")
		if code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "missing authorization code",
			})
		}
		if err := yt.HandleCallback(c.Context(), code); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.JSON(fiber.Map{"success": true, "message": "YouTube account connected"})
	}
}

// handleEventsWS attaches an observer: snapshot first, then the live
// event stream until the connection drops.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	snapshot, err := json.Marshal(Envelope{
		Type: discussion.EventConnected,
		Data: s.scheduler.Snapshot(),
	})
	if err != nil {
		s.logger.Error("snapshot encode failed", "error", err)
		hub.NewClient(s.events, c).Run()
		return
	}

	hub.NewClient(s.events, c, snapshot).Run()
}
