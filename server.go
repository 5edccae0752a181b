package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"music-player-go/circuitbreaker"
	"music-player-go/logcolors"
	"music-player-go/middleware"
	"music-player-go/models"
	"music-player-go/player"
	"music-player-go/search"
	"music-player-go/stats"
	"music-player-go/store"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// CatalogSource lists songs on the music server.
type CatalogSource interface {
	Songs(ctx context.Context) ([]models.Song, error)
	AllSongs(ctx context.Context) ([]models.Song, error)
	LoadMore(ctx context.Context, page, perPage int) (models.Page, error)
}

// Server serves the remote-control API for one player.
type Server struct {
	player   *player.Player
	catalog  CatalogSource
	search   *search.Manager
	store    *store.PersistentStore
	breaker  *circuitbreaker.CircuitBreaker
	stats    *stats.Stats
	pageSize int

	audioAvailable bool
	musicServerURL string

	// displayed-list paging
	pageMu sync.Mutex
	page   int
}

// ServerConfig holds the collaborators of a Server.
type ServerConfig struct {
	Player         *player.Player
	Catalog        CatalogSource
	Search         *search.Manager
	Store          *store.PersistentStore
	Breaker        *circuitbreaker.CircuitBreaker
	Stats          *stats.Stats
	PageSize       int
	AudioAvailable bool
	MusicServerURL string
}

// NewServer creates a server. Stats defaults to the global counters.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Stats == nil {
		cfg.Stats = stats.Get()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 8
	}
	return &Server{
		player:         cfg.Player,
		catalog:        cfg.Catalog,
		search:         cfg.Search,
		store:          cfg.Store,
		breaker:        cfg.Breaker,
		stats:          cfg.Stats,
		pageSize:       cfg.PageSize,
		audioAvailable: cfg.AudioAvailable,
		musicServerURL: cfg.MusicServerURL,
	}
}

// Router returns the bare route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	s.setupRoutes(router)
	return router
}

// HandlerOptions configure the middleware chain.
type HandlerOptions struct {
	AllowedOrigins []string
	APIKey         string
	APIKeyRequired bool
	Limiter        *middleware.IPRateLimiter
}

// Handler wraps the routes in logging, CORS, API key and rate limiting.
func (s *Server) Handler(opts HandlerOptions) http.Handler {
	var handler http.Handler = s.Router()

	if opts.Limiter != nil {
		handler = middleware.RateLimitMiddleware(opts.Limiter, opts.APIKey)(handler)
	}
	handler = middleware.APIKeyMiddleware(opts.APIKey, opts.APIKeyRequired, []string{"/health"})(handler)

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Player-State", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	})
	handler = c.Handler(handler)

	return middleware.LoggingMiddleware(handler)
}

// LoadCatalog fetches the displayed list and the full catalog. Either may
// fail independently; the player keeps whatever it had.
func (s *Server) LoadCatalog(ctx context.Context) error {
	displayed, dErr := s.catalog.Songs(ctx)
	if dErr == nil {
		s.player.SetDisplayed(displayed)
		s.pageMu.Lock()
		s.page = 1
		s.pageMu.Unlock()
	} else {
		log.Warnf("%s Failed to load displayed songs: %v", logcolors.LogServer, dErr)
	}

	all, aErr := s.catalog.AllSongs(ctx)
	if aErr == nil {
		s.player.SetCatalog(all)
	} else {
		log.Warnf("%s Failed to load catalog: %v", logcolors.LogServer, aErr)
	}

	if dErr != nil {
		return dErr
	}
	if aErr != nil {
		return aErr
	}
	log.Infof("%s Catalog loaded: %d displayed, %d total", logcolors.LogServer, len(displayed), len(all))
	return nil
}

// PruneLimiter drops idle rate-limit buckets until ctx is done.
func PruneLimiter(ctx context.Context, limiter *middleware.IPRateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(every); n > 0 {
				log.Debugf("%s Pruned %d idle clients", logcolors.LogRateLimit, n)
			}
		}
	}
}

func newLimiter(perSecond, burst int) *middleware.IPRateLimiter {
	if perSecond <= 0 {
		return nil
	}
	return middleware.NewIPRateLimiter(rate.Limit(perSecond), burst)
}
