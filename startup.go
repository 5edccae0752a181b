package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"music-player-go/audio"
	"music-player-go/circuitbreaker"
	"music-player-go/config"
	"music-player-go/logcolors"
	"music-player-go/musicapi"
	"music-player-go/player"
	"music-player-go/playlist"
	"music-player-go/search"
	"music-player-go/snapshot"
	"music-player-go/stats"
	"music-player-go/store"

	log "github.com/sirupsen/logrus"
)

const statsSaveInterval = 5 * time.Minute

// app owns every long-lived component of the daemon.
type app struct {
	store      *store.PersistentStore
	statsStore *stats.Store
	client     *musicapi.Client
	engine     *audio.Engine
	player     *player.Player
	search     *search.Manager
	server     *Server
}

// newApp opens the snapshot store and wires the player to the music server.
func newApp(cfg config.Config) (*app, error) {
	c := cfg.Configuration

	st, err := store.Open(c.SnapshotDBPath, c.SnapshotBackupPath, cfg.FeatureFlags.SnapshotCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	statsStore := stats.NewStore(st, stats.Get())
	if err := statsStore.Load(); err != nil {
		log.Warnf("%s Failed to load persisted stats: %v", logcolors.LogStats, err)
	}
	statsStore.StartAutoSave(statsSaveInterval)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "MusicServer",
		Threshold: c.CircuitBreakerThreshold,
		Cooldown:  time.Duration(c.CircuitBreakerCooldownSecs) * time.Second,
		IsFailure: musicapi.IsServerFailure,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warnf("%s %s -> %s", logcolors.CircuitBreakerPrefix(name), from, to)
		},
	})

	client, err := musicapi.New(musicapi.Options{
		BaseURL: c.MusicServerURL,
		Timeout: cfg.MusicServerTimeout(),
		Breaker: breaker,
	})
	if err != nil {
		statsStore.Close()
		st.Close()
		return nil, err
	}

	// Streams share the session cookies but not the per-request timeout.
	streamClient := &http.Client{Jar: client.HTTPClient().Jar}
	engine := audio.NewEngine(streamClient, cfg.AudioTickInterval())
	snapshots := snapshot.New(st)
	p := player.New(engine, client, snapshots, playlist.New(snapshots), player.Options{
		ScrubThreshold: c.ScrubThresholdSecs,
	})
	engine.SetListener(p)

	searcher := search.New(client, search.Options{Debounce: cfg.SearchDebounce()})

	if !audio.Available {
		log.Warnf("%s Built without sound support; playback commands will fail", logcolors.LogAudio)
	}

	return &app{
		store:      st,
		statsStore: statsStore,
		client:     client,
		engine:     engine,
		player:     p,
		search:     searcher,
		server: NewServer(ServerConfig{
			Player:         p,
			Catalog:        client,
			Search:         searcher,
			Store:          st,
			Breaker:        breaker,
			PageSize:       c.DisplayPageSize,
			AudioAvailable: audio.Available,
			MusicServerURL: client.BaseURL(),
		}),
	}, nil
}

// bootstrap logs in when credentials are configured, loads the song lists
// and restores the last session. Failures leave the daemon usable.
func (a *app) bootstrap(ctx context.Context, cfg config.Config) {
	if cfg.FeatureFlags.AutoLogin && cfg.HasCredentials() {
		result, err := a.client.Login(ctx, cfg.Configuration.MusicServerEmail, cfg.Configuration.MusicServerPassword)
		if err != nil {
			log.Warnf("%s Auto-login failed: %v", logcolors.LogAuth, err)
		} else {
			log.Infof("%s Logged in as %s (%s)", logcolors.LogAuth, cfg.Configuration.MusicServerEmail, result.Message)
		}
	}

	if err := a.server.LoadCatalog(ctx); err != nil {
		log.Warnf("%s Starting with an incomplete catalog: %v", logcolors.LogServer, err)
	}

	if err := a.player.Restore(ctx); err != nil {
		log.Warnf("%s Could not restore last session: %v", logcolors.LogRestore, err)
	}
}

// shutdown saves state and releases resources in dependency order.
func (a *app) shutdown() {
	if err := a.player.SaveState(); err != nil {
		log.Errorf("%s Failed to save playback state: %v", logcolors.LogSnapshot, err)
	}
	a.player.Close()
	a.search.Close()
	if err := a.engine.Close(); err != nil {
		log.Warnf("%s Failed to close audio engine: %v", logcolors.LogAudio, err)
	}
	if err := a.statsStore.Close(); err != nil {
		log.Errorf("%s Failed to save stats: %v", logcolors.LogStats, err)
	}
	if err := a.store.Close(); err != nil {
		log.Errorf("%s Failed to close snapshot store: %v", logcolors.LogStore, err)
	}
}
