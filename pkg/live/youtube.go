package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"
)

// YouTube manages broadcasts through the YouTube Data API v3: it creates
// the broadcast and ingest stream, binds them, and transitions the
// broadcast live once the encoder is pushing.
type YouTube struct {
	config    *oauth2.Config
	tokenPath string
	logger    *slog.Logger

	mu      sync.RWMutex
	token   *oauth2.Token
	service *youtube.Service

	broadcastID string
	watchURL    string
}

// YouTubeConfig configures the managed YouTube control.
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "http://localhost:5000/api/auth/youtube/callback"
	TokenPath    string // default: ~/.roundtable/youtube_token.json
	Logger       *slog.Logger
}

// NewYouTube creates the managed control and loads any stored token.
func NewYouTube(cfg YouTubeConfig) (*YouTube, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("live: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:5000/api/auth/youtube/callback"
	}
	if cfg.TokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(homeDir, ".roundtable", "youtube_token.json")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	yt := &YouTube{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{youtube.YoutubeScope},
			Endpoint:     google.Endpoint,
		},
		tokenPath: cfg.TokenPath,
		logger:    cfg.Logger.With("component", "live.youtube"),
	}

	if err := yt.loadToken(); err == nil {
		if err := yt.initService(); err != nil {
			yt.token = nil
		}
	}

	return yt, nil
}

// IsAuthenticated returns true when a usable token is loaded.
func (y *YouTube) IsAuthenticated() bool {
	y.mu.RLock()
	defer y.mu.RUnlock()
	return y.service != nil
}

// AuthURL returns the OAuth2 consent URL.
func (y *YouTube) AuthURL() string {
	return y.config.AuthCodeURL("roundtable-state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code and stores the token.
func (y *YouTube) HandleCallback(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	token, err := y.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("live: exchange code: %w", err)
	}

	y.mu.Lock()
	y.token = token
	y.mu.Unlock()

	if err := y.saveToken(); err != nil {
		y.logger.Warn("token not persisted", "error", err)
	}
	return y.initService()
}

// Start creates a broadcast, provisions (or reuses) an ingest stream,
// binds the two, and returns the RTMP target. The broadcast is
// transitioned live in the background once YouTube sees the encoder.
func (y *YouTube) Start(ctx context.Context, opts StartOptions) (*StreamInfo, error) {
	y.mu.RLock()
	service := y.service
	y.mu.RUnlock()

	if service == nil {
		return nil, fmt.Errorf("live: not authenticated, visit %s", y.AuthURL())
	}

	title := opts.Title
	if title == "" {
		title = "Roundtable Discussion"
	}
	privacy := opts.Privacy
	if privacy == "" {
		privacy = "unlisted"
	}

	broadcast, err := service.LiveBroadcasts.Insert(
		[]string{"snippet", "status", "contentDetails"},
		&youtube.LiveBroadcast{
			Snippet: &youtube.LiveBroadcastSnippet{
				Title:              title,
				Description:        opts.Description,
				ScheduledStartTime: time.Now().UTC().Format(time.RFC3339),
			},
			Status: &youtube.LiveBroadcastStatus{
				PrivacyStatus:           privacy,
				SelfDeclaredMadeForKids: false,
			},
			ContentDetails: &youtube.LiveBroadcastContentDetails{
				EnableAutoStart: false,
				EnableAutoStop:  false,
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("live: insert broadcast: %w", err)
	}

	stream, err := y.findOrCreateStream(ctx, service)
	if err != nil {
		return nil, err
	}

	if _, err := service.LiveBroadcasts.Bind(broadcast.Id, []string{"id", "contentDetails"}).
		StreamId(stream.Id).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("live: bind stream: %w", err)
	}

	ingest := stream.Cdn.IngestionInfo
	info := &StreamInfo{
		IngestURL:   fmt.Sprintf("%s/%s", ingest.IngestionAddress, ingest.StreamName),
		BroadcastID: broadcast.Id,
		WatchURL:    fmt.Sprintf("https://www.youtube.com/watch?v=%s", broadcast.Id),
	}

	y.mu.Lock()
	y.broadcastID = broadcast.Id
	y.watchURL = info.WatchURL
	y.mu.Unlock()

	go y.goLiveWhenReady(broadcast.Id, stream.Id)

	y.logger.Info("broadcast created",
		"broadcast_id", broadcast.Id,
		"watch_url", info.WatchURL,
		"privacy", privacy,
	)
	return info, nil
}

// findOrCreateStream reuses an existing reusable RTMP stream when the
// account has one, otherwise provisions a new one.
func (y *YouTube) findOrCreateStream(ctx context.Context, service *youtube.Service) (*youtube.LiveStream, error) {
	list, err := service.LiveStreams.List([]string{"id", "cdn"}).Mine(true).Context(ctx).Do()
	if err == nil {
		for _, s := range list.Items {
			if s.Cdn != nil && s.Cdn.IngestionType == "rtmp" && s.Cdn.IngestionInfo != nil {
				return s, nil
			}
		}
	}

	stream, err := service.LiveStreams.Insert(
		[]string{"snippet", "cdn", "contentDetails"},
		&youtube.LiveStream{
			Snippet: &youtube.LiveStreamSnippet{Title: "roundtable ingest"},
			Cdn: &youtube.CdnSettings{
				FrameRate:     "30fps",
				IngestionType: "rtmp",
				Resolution:    "720p",
			},
			ContentDetails: &youtube.LiveStreamContentDetails{IsReusable: true},
		},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("live: insert stream: %w", err)
	}
	return stream, nil
}

// goLiveWhenReady polls the ingest stream until YouTube reports data
// flowing, then transitions the broadcast through testing to live.
// Best effort: failures are logged and the broadcast stays in its
// current state for the operator to fix in Studio.
func (y *YouTube) goLiveWhenReady(broadcastID, streamID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	y.mu.RLock()
	service := y.service
	y.mu.RUnlock()
	if service == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			y.logger.Warn("broadcast never saw encoder data", "broadcast_id", broadcastID)
			return
		case <-time.After(5 * time.Second):
		}

		list, err := service.LiveStreams.List([]string{"status"}).Id(streamID).Context(ctx).Do()
		if err != nil || len(list.Items) == 0 {
			continue
		}
		if list.Items[0].Status == nil || list.Items[0].Status.StreamStatus != "active" {
			continue
		}

		for _, state := range []string{"testing", "live"} {
			if _, err := service.LiveBroadcasts.Transition(state, broadcastID, []string{"status"}).
				Context(ctx).Do(); err != nil {
				y.logger.Warn("broadcast transition failed", "state", state, "error", err)
				return
			}
			time.Sleep(3 * time.Second)
		}

		y.logger.Info("broadcast is live", "broadcast_id", broadcastID)
		return
	}
}

// Stop transitions the active broadcast to complete.
func (y *YouTube) Stop(ctx context.Context) error {
	y.mu.Lock()
	service := y.service
	broadcastID := y.broadcastID
	y.broadcastID = ""
	y.watchURL = ""
	y.mu.Unlock()

	if service == nil || broadcastID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := service.LiveBroadcasts.Transition("complete", broadcastID, []string{"status"}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("live: complete broadcast: %w", err)
	}

	y.logger.Info("broadcast completed", "broadcast_id", broadcastID)
	return nil
}

// Status reports the managed connection state.
func (y *YouTube) Status() Status {
	y.mu.RLock()
	defer y.mu.RUnlock()
	return Status{
		Mode:          "youtube",
		Authenticated: y.service != nil,
		Active:        y.broadcastID != "",
		BroadcastID:   y.broadcastID,
		WatchURL:      y.watchURL,
	}
}

// initService builds the API client from the current token.
func (y *YouTube) initService() error {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.token == nil {
		return fmt.Errorf("live: no token available")
	}

	ctx := context.Background()
	service, err := youtube.NewService(ctx,
		option.WithHTTPClient(y.config.Client(ctx, y.token)))
	if err != nil {
		return fmt.Errorf("live: create youtube service: %w", err)
	}

	y.service = service
	return nil
}

// loadToken reads the stored OAuth token from disk.
func (y *YouTube) loadToken() error {
	data, err := os.ReadFile(y.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	y.mu.Lock()
	y.token = &token
	y.mu.Unlock()
	return nil
}

// saveToken persists the OAuth token for future runs.
func (y *YouTube) saveToken() error {
	y.mu.RLock()
	token := y.token
	y.mu.RUnlock()

	if token == nil {
		return fmt.Errorf("live: no token to save")
	}

	if err := os.MkdirAll(filepath.Dir(y.tokenPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(y.tokenPath, data, 0o600)
}

// Verify YouTube implements Control at compile time.
var _ Control = (*YouTube)(nil)
