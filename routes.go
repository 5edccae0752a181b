package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes registers the remote-control API.
func (s *Server) setupRoutes(router *mux.Router) {
	// Playback
	router.HandleFunc("/player", s.getPlayer).Methods(http.MethodGet)
	router.HandleFunc("/player/play", s.playByIndex).Methods(http.MethodPost)
	router.HandleFunc("/player/play/{id}", s.playByID).Methods(http.MethodPost)
	router.HandleFunc("/player/toggle", s.togglePause).Methods(http.MethodPost)
	router.HandleFunc("/player/next", s.playNext).Methods(http.MethodPost)
	router.HandleFunc("/player/prev", s.playPrev).Methods(http.MethodPost)
	router.HandleFunc("/player/mode", s.toggleMode).Methods(http.MethodPost)
	router.HandleFunc("/player/seek", s.seek).Methods(http.MethodPost)
	router.HandleFunc("/player/volume", s.setVolume).Methods(http.MethodPost)
	router.HandleFunc("/player/like", s.toggleLike).Methods(http.MethodPost)
	router.HandleFunc("/lyrics", s.getLyrics).Methods(http.MethodGet)

	// Playlist
	router.HandleFunc("/playlist", s.getPlaylist).Methods(http.MethodGet)
	router.HandleFunc("/playlist", s.addToPlaylist).Methods(http.MethodPost)
	router.HandleFunc("/playlist", s.clearPlaylist).Methods(http.MethodDelete)
	router.HandleFunc("/playlist/{index:[0-9]+}", s.removeFromPlaylist).Methods(http.MethodDelete)
	router.HandleFunc("/playlist/{index:[0-9]+}/play", s.playFromPlaylist).Methods(http.MethodPost)

	// Catalog
	router.HandleFunc("/catalog", s.getCatalog).Methods(http.MethodGet)
	router.HandleFunc("/catalog/more", s.loadMore).Methods(http.MethodPost)
	router.HandleFunc("/catalog/refresh", s.refreshCatalog).Methods(http.MethodPost)

	// Online search
	router.HandleFunc("/search", s.searchSongs).Methods(http.MethodGet)
	router.HandleFunc("/search/suggest", s.suggest).Methods(http.MethodGet)
	router.HandleFunc("/search/dismiss", s.dismissSuggestions).Methods(http.MethodPost)
	router.HandleFunc("/download", s.download).Methods(http.MethodPost)

	// Health, stats and maintenance
	router.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker", s.getCircuitBreaker).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", s.resetCircuitBreaker).Methods(http.MethodPost)
	router.HandleFunc("/snapshot/backup", s.backupSnapshot).Methods(http.MethodPost)
	router.HandleFunc("/snapshot/backups", s.listBackups).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Respond(w, r).Error(http.StatusNotFound, "no such route: "+r.URL.Path)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Respond(w, r).Error(http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})
}
