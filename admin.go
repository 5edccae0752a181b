package main

import (
	"net/http"

	"music-player-go/circuitbreaker"
	"music-player-go/logcolors"

	log "github.com/sirupsen/logrus"
)

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	view := s.player.Snapshot()
	resp := HealthResponse{
		Status:         "ok",
		Uptime:         s.stats.Uptime().String(),
		MusicServer:    s.musicServerURL,
		AudioAvailable: s.audioAvailable,
		PlayerState:    view.State.String(),
	}
	if s.breaker != nil {
		resp.CircuitBreaker = s.breaker.State().String()
		if s.breaker.State() != circuitbreaker.StateClosed {
			resp.Status = "degraded"
		}
	}
	if !s.audioAvailable {
		resp.Status = "degraded"
	}
	Respond(w, r).SetPlayerState(view.State).JSON(resp)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := s.stats.Snapshot()
	if s.store != nil {
		keys, sizeKB := s.store.Stats()
		snapshot["snapshot_store"] = map[string]interface{}{
			"keys":    keys,
			"size_kb": sizeKB,
		}
	}
	Respond(w, r).JSON(snapshot)
}

func (s *Server) breakerResponse() CircuitBreakerResponse {
	return CircuitBreakerResponse{
		Name:           s.breaker.Name(),
		State:          s.breaker.State().String(),
		Failures:       s.breaker.Failures(),
		TimeUntilRetry: s.breaker.TimeUntilRetry().String(),
	}
}

func (s *Server) getCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if s.breaker == nil {
		Respond(w, r).Error(http.StatusNotFound, "no circuit breaker configured")
		return
	}
	Respond(w, r).JSON(s.breakerResponse())
}

func (s *Server) resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if s.breaker == nil {
		Respond(w, r).Error(http.StatusNotFound, "no circuit breaker configured")
		return
	}
	s.breaker.Reset()
	log.Infof("%s Reset by %s", logcolors.CircuitBreakerPrefix(s.breaker.Name()), r.RemoteAddr)
	Respond(w, r).JSON(s.breakerResponse())
}

func (s *Server) backupSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.player.SaveState(); err != nil {
		log.Warnf("%s Saving state before backup failed: %v", logcolors.LogSnapshot, err)
	}
	path, err := s.store.Backup()
	if err != nil {
		log.Errorf("%s Backup failed: %v", logcolors.LogSnapshot, err)
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).Status(http.StatusCreated, BackupResponse{Path: path})
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.store.ListBackups()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(BackupListResponse{Backups: backups, Count: len(backups)})
}
