// Command roundtable runs the discussion daemon: a roster of AI personas
// takes turns speaking on rotating topics, each utterance synthesized to
// audio and pushed to local playback and/or an RTMP live stream, with
// state-change events fanned out to WebSocket observers.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxlab/go-roundtable/internal/config"
	"github.com/voxlab/go-roundtable/internal/log"
	"github.com/voxlab/go-roundtable/pkg/discussion"
	"github.com/voxlab/go-roundtable/pkg/egress"
	"github.com/voxlab/go-roundtable/pkg/generate"
	"github.com/voxlab/go-roundtable/pkg/hub"
	"github.com/voxlab/go-roundtable/pkg/live"
	"github.com/voxlab/go-roundtable/pkg/persona"
	"github.com/voxlab/go-roundtable/pkg/tts"
	"github.com/voxlab/go-roundtable/pkg/web"
)

func main() {
	var (
		port      = flag.String("port", config.String("PORT", config.DefaultPort), "HTTP listen port")
		cacheDir  = flag.String("cache", config.String("AUDIO_CACHE_DIR", config.DefaultAudioCache), "audio cache directory")
		logLevel  = flag.String("log-level", config.String("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
		localPlay = flag.Bool("local-audio", false, "also play utterances on local speakers")
		autoStart = flag.Bool("auto-start", true, "start the discussion loop immediately")
	)
	flag.Parse()

	log.Init(*logLevel)
	logger := log.L()

	registry, err := persona.NewRegistry(persona.DefaultRoster())
	if err != nil {
		logger.Error("invalid roster", "error", err)
		os.Exit(1)
	}

	// Text generation: OpenAI when a key is present, canned fallback
	// otherwise.
	var genProvider generate.Provider
	if key := config.OpenAIKey(); key != "" {
		p, err := generate.NewOpenAI(key)
		if err != nil {
			logger.Warn("generation provider unavailable, using fallback", "error", err)
		} else {
			genProvider = p
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, utterances use canned fallback")
	}
	gen := generate.NewGenerator(genProvider, logger)

	// Speech synthesis: ElevenLabs preferred, OpenAI speech as fallback,
	// text-only when neither credential exists.
	var providers []tts.Provider
	if key := config.ElevenLabsKey(); key != "" {
		p, err := tts.NewElevenLabs(tts.WithAPIKey(key), tts.WithLogger(logger))
		if err != nil {
			logger.Warn("elevenlabs unavailable", "error", err)
		} else {
			providers = append(providers, p)
		}
	}
	if key := config.OpenAIKey(); key != "" {
		p, err := tts.NewOpenAI(tts.WithAPIKey(key), tts.WithLogger(logger))
		if err != nil {
			logger.Warn("openai speech unavailable", "error", err)
		} else {
			providers = append(providers, p)
		}
	}

	var ttsProvider tts.Provider
	if len(providers) > 0 {
		chain, err := tts.NewChain(logger, providers...)
		if err != nil {
			logger.Error("tts chain", "error", err)
			os.Exit(1)
		}
		ttsProvider = chain
	} else {
		logger.Warn("no TTS credentials, running text-only")
	}

	cache, err := tts.NewCache(*cacheDir, logger)
	if err != nil {
		logger.Error("audio cache", "error", err)
		os.Exit(1)
	}
	if removed, err := cache.Prune(config.Duration("CACHE_MAX_AGE", config.DefaultCacheMaxAge)); err != nil {
		logger.Warn("cache prune failed", "error", err)
	} else if removed > 0 {
		logger.Info("stale cache entries removed", "count", removed)
	}

	synth := tts.NewSynthesizer(ttsProvider, cache, logger)
	defer synth.Close()

	// Egress: the RTMP stream joins the sink set once started; local
	// playback and the text log are always available.
	stream := egress.NewStream(logger)
	defer stream.Close()

	sinks := []egress.Sink{egress.NewTextSink(logger)}
	if *localPlay {
		sinks = append(sinks, egress.NewPlayer(logger))
	}
	sinks = append(sinks, &streamWhenRunning{stream: stream})
	sink := egress.NewMultiSink(sinks...)
	defer sink.Close()

	// Live platform: managed YouTube when OAuth credentials exist,
	// manual key when STREAM_KEY is set, disabled otherwise.
	liveCtl := buildLiveControl(logger)

	events := hub.New("events", logger)
	eventSink := web.NewHubSink(events)

	schedCfg := discussion.DefaultConfig()
	schedCfg.InterRoundDelay = config.Duration("DISCUSSION_INTERVAL", schedCfg.InterRoundDelay)
	schedCfg.TopicRotateProb = config.Float("TOPIC_ROTATE_PROB", schedCfg.TopicRotateProb)

	scheduler := discussion.New(schedCfg, registry, gen, synth, sink, eventSink, logger)
	if *autoStart {
		scheduler.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)

	server := web.NewServer(web.Config{
		Port:      *port,
		Registry:  registry,
		Scheduler: scheduler,
		Synth:     synth,
		Sink:      sink,
		Stream:    stream,
		Live:      liveCtl,
		Events:    events,
		Logger:    logger,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		scheduler.Stop()
		if err := server.Shutdown(); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	logger.Info("roundtable starting",
		"port", *port,
		"personas", registry.Count(),
		"tts_degraded", synth.Degraded(),
		"generation_degraded", gen.Degraded(),
		"live_mode", liveCtl.Status().Mode,
	)
	if err := server.Start(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildLiveControl picks the live-platform variant from the environment.
func buildLiveControl(logger *slog.Logger) live.Control {
	if id, secret := config.GoogleClientID(), config.GoogleClientSecret(); id != "" && secret != "" {
		yt, err := live.NewYouTube(live.YouTubeConfig{
			ClientID:     id,
			ClientSecret: secret,
			RedirectURL:  config.String("OAUTH_REDIRECT_URL", ""),
			TokenPath:    config.String("YOUTUBE_TOKEN_PATH", ""),
			Logger:       log.L(),
		})
		if err == nil {
			logger.Info("live platform: managed youtube account")
			return yt
		}
		logger.Warn("youtube control unavailable", "error", err)
	}

	if key := config.StreamKey(); key != "" {
		logger.Info("live platform: manual stream key")
		return live.NewManualKey(config.String("RTMP_BASE", config.DefaultRTMPBase), key)
	}

	logger.Info("live platform: disabled")
	return live.NewDisabled()
}

// streamWhenRunning forwards to the RTMP stream only while it is live,
// so an idle stream never surfaces ErrNotStreaming into every turn.
type streamWhenRunning struct {
	stream *egress.Stream
}

func (s *streamWhenRunning) Emit(ctx context.Context, u egress.Utterance) (time.Duration, error) {
	if !s.stream.Status().Running {
		return 0, nil
	}
	return s.stream.Emit(ctx, u)
}

func (s *streamWhenRunning) Close() error { return nil }
