package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"music-player-go/audio"
	"music-player-go/circuitbreaker"
	"music-player-go/musicapi"
	"music-player-go/player"
	"music-player-go/store"
)

// APIResponse centralizes headers and JSON encoding for remote-control responses.
type APIResponse struct {
	w     http.ResponseWriter
	r     *http.Request
	state string
}

// Respond creates a response helper for a request.
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetPlayerState adds the X-Player-State header.
func (a *APIResponse) SetPlayerState(s player.State) *APIResponse {
	a.state = s.String()
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")
	a.w.Header().Set("Cache-Control", "no-store")
	if a.state != "" {
		a.w.Header().Set("X-Player-State", a.state)
	}
}

// JSON writes data with 200 OK.
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Status writes data with the given status code.
func (a *APIResponse) Status(code int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(code)
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes {"error": message} with the given status code.
func (a *APIResponse) Error(code int, message string) error {
	return a.Status(code, ErrorResponse{Error: message})
}

// Fail maps err to a status code and writes it.
func (a *APIResponse) Fail(err error) error {
	return a.Error(statusForError(err), err.Error())
}

// statusForError maps domain errors to HTTP status codes. Music server and
// stream failures are reported as 502.
func statusForError(err error) int {
	var apiErr *musicapi.APIError

	switch {
	case errors.Is(err, player.ErrIndexOutOfRange), errors.Is(err, player.ErrSongNotFound):
		return http.StatusNotFound
	case errors.Is(err, player.ErrNoSong), errors.Is(err, player.ErrEmptyCatalog), errors.Is(err, player.ErrEmptyPlaylist):
		return http.StatusConflict
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, audio.ErrAudioUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, musicapi.ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrInvalidBackup):
		return http.StatusBadRequest
	case errors.As(err, &apiErr), errors.Is(err, player.ErrPlayback):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
