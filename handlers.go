package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"music-player-go/logcolors"
	"music-player-go/models"
	"music-player-go/player"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

func (s *Server) respondView(w http.ResponseWriter, r *http.Request) {
	view := s.player.Snapshot()
	Respond(w, r).SetPlayerState(view.State).JSON(view)
}

// respondPlayer writes the player view on success, or maps err to a status.
func (s *Server) respondPlayer(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		view := s.player.Snapshot()
		Respond(w, r).SetPlayerState(view.State).Fail(err)
		return
	}
	s.respondView(w, r)
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r)
}

func (s *Server) playByIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "index must be an integer")
		return
	}
	fromDisplay, _ := strconv.ParseBool(r.URL.Query().Get("display"))

	log.Infof("%s Play index %d (display=%t)", logcolors.LogPlayer, index, fromDisplay)
	s.respondPlayer(w, r, s.player.PlayByIndex(r.Context(), index, fromDisplay))
}

func (s *Server) playByID(w http.ResponseWriter, r *http.Request) {
	id := models.SongID(mux.Vars(r)["id"])
	s.respondPlayer(w, r, s.player.PlayByID(r.Context(), id))
}

func (s *Server) togglePause(w http.ResponseWriter, r *http.Request) {
	s.respondPlayer(w, r, s.player.TogglePause(r.Context()))
}

func (s *Server) playNext(w http.ResponseWriter, r *http.Request) {
	s.respondPlayer(w, r, s.player.PlayNext(r.Context()))
}

func (s *Server) playPrev(w http.ResponseWriter, r *http.Request) {
	s.respondPlayer(w, r, s.player.PlayPrev(r.Context()))
}

func (s *Server) toggleMode(w http.ResponseWriter, r *http.Request) {
	mode := s.player.TogglePlayMode()
	log.Infof("%s Play mode: %s", logcolors.LogPlayer, player.TitleFor(mode))
	s.respondView(w, r)
}

func (s *Server) seek(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "t must be a number of seconds")
		return
	}
	s.respondPlayer(w, r, s.player.Seek(t))
}

func (s *Server) setVolume(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.ParseFloat(r.URL.Query().Get("v"), 64)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "v must be a number between 0 and 1")
		return
	}
	s.player.SetVolume(v)
	s.respondView(w, r)
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	_, err := s.player.ToggleLike(r.Context())
	s.respondPlayer(w, r, err)
}

func (s *Server) getLyrics(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(LyricsResponse{
		Display: s.player.Lyrics(),
		Lines:   s.player.LyricLines(),
	})
}

func (s *Server) playlistResponse() PlaylistResponse {
	pl := s.player.Playlist()
	return PlaylistResponse{
		Songs:        pl.Songs(),
		CurrentIndex: pl.Current(),
		FromPlaylist: s.player.Snapshot().FromPlaylist,
	}
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(s.playlistResponse())
}

func (s *Server) addToPlaylist(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		Respond(w, r).Error(http.StatusBadRequest, "id is required")
		return
	}

	added, err := s.player.AddToPlaylistByID(models.SongID(id))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(PlaylistAddResponse{Added: added, Size: s.player.Playlist().Len()})
}

func (s *Server) removeFromPlaylist(w http.ResponseWriter, r *http.Request) {
	index, _ := strconv.Atoi(mux.Vars(r)["index"])
	if err := s.player.RemoveFromPlaylist(r.Context(), index); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(s.playlistResponse())
}

func (s *Server) clearPlaylist(w http.ResponseWriter, r *http.Request) {
	s.player.ClearPlaylist()
	Respond(w, r).JSON(s.playlistResponse())
}

func (s *Server) playFromPlaylist(w http.ResponseWriter, r *http.Request) {
	index, _ := strconv.Atoi(mux.Vars(r)["index"])
	s.respondPlayer(w, r, s.player.PlayFromPlaylist(r.Context(), index))
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "displayed"
	}

	s.pageMu.Lock()
	page := s.page
	s.pageMu.Unlock()

	switch view {
	case "displayed":
		Respond(w, r).JSON(CatalogResponse{View: view, Songs: s.player.Displayed(), Page: page})
	case "all":
		Respond(w, r).JSON(CatalogResponse{View: view, Songs: s.player.Catalog(), Page: page})
	default:
		Respond(w, r).Error(http.StatusBadRequest, fmt.Sprintf("unknown view %q, expected displayed or all", view))
	}
}

// loadMore appends the next page of the server's paginated list to the
// displayed songs.
func (s *Server) loadMore(w http.ResponseWriter, r *http.Request) {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	next := s.page + 1
	page, err := s.catalog.LoadMore(r.Context(), next, s.pageSize)
	if err != nil {
		log.Warnf("%s Load more failed: %v", logcolors.LogServer, err)
		Respond(w, r).Fail(err)
		return
	}

	added := 0
	if len(page.Songs) > 0 {
		added = s.player.AppendDisplayed(page.Songs)
		s.page = next
	}

	status := "loaded"
	if !page.HasMore {
		status = "no_more"
	}
	Respond(w, r).JSON(LoadMoreResponse{
		Added:         added,
		Page:          s.page,
		TotalLoaded:   page.TotalLoaded,
		Total:         page.Total,
		HasMore:       page.HasMore,
		DisplayedSize: len(s.player.Displayed()),
		Status:        status,
	})
}

func (s *Server) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.LoadCatalog(r.Context()); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	s.respondView(w, r)
}

func (s *Server) searchSongs(w http.ResponseWriter, r *http.Request) {
	view, err := s.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(view)
}

// suggest schedules a debounced suggestion fetch and returns the view as it
// stands; poll GET /search/suggest or /search with no query to see results.
func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") {
		Respond(w, r).JSON(s.search.View())
		return
	}
	s.search.Suggest(q.Get("q"))
	Respond(w, r).Status(http.StatusAccepted, s.search.View())
}

func (s *Server) dismissSuggestions(w http.ResponseWriter, r *http.Request) {
	s.search.Dismiss()
	Respond(w, r).JSON(s.search.View())
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "invalid JSON body")
		return
	}

	n := s.search.Download(r.Context(), req.Song, req.Artist)
	if n.Song != nil {
		// Downloaded songs join the catalog immediately.
		catalog := s.player.Catalog()
		if !lo.ContainsBy(catalog, func(song models.Song) bool { return song.ID == n.Song.ID }) {
			s.player.SetCatalog(append(catalog, *n.Song))
		}
	}
	Respond(w, r).JSON(DownloadResponse{Notification: n})
}
