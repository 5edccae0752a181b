package musicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"music-player-go/logcolors"
	"music-player-go/lyrics"
	"music-player-go/models"

	log "github.com/sirupsen/logrus"
)

// Songs returns the displayed list: the newest songs on the server.
func (c *Client) Songs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := c.getJSON(ctx, "/api/songs", nil, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// AllSongs returns the full catalog.
func (c *Client) AllSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := c.getJSON(ctx, "/api/all_songs", nil, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// SongsPage returns one page of the catalog.
func (c *Client) SongsPage(ctx context.Context, page, size int) ([]models.Song, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("size", strconv.Itoa(max(size, 1)))

	var songs []models.Song
	if err := c.getJSON(ctx, "/api/songs", q, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// LoadMore fetches the next block of the displayed list.
func (c *Client) LoadMore(ctx context.Context, page, perPage int) (models.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("per_page", strconv.Itoa(max(perPage, 1)))

	var p models.Page
	if err := c.getJSON(ctx, "/api/songsLoading", q, &p); err != nil {
		return models.Page{}, err
	}
	return p, nil
}

// Total returns the number of songs on the server.
func (c *Client) Total(ctx context.Context) (int, error) {
	var body struct {
		Total  int    `json:"total"`
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := c.getJSON(ctx, "/api/songs/total", nil, &body); err != nil {
		return 0, err
	}
	if body.Status == "error" {
		return 0, &APIError{Endpoint: "/api/songs/total", StatusCode: 200, Message: body.Error}
	}
	return body.Total, nil
}

// StreamURL is the audio endpoint for a song.
func (c *Client) StreamURL(id models.SongID) string {
	return c.endpoint("/api/play/"+url.PathEscape(id.String()), nil)
}

// Lyrics fetches and decodes the timed lyrics of a song. A song without
// lyrics yields an empty slice.
func (c *Client) Lyrics(ctx context.Context, id models.SongID) ([]lyrics.Line, error) {
	path := "/api/songs/" + url.PathEscape(id.String()) + "/lyrics"

	var body struct {
		Lyrics json.RawMessage `json:"lyrics"`
	}
	if err := c.getJSON(ctx, path, nil, &body); err != nil {
		return nil, err
	}

	lines, err := lyrics.Decode(body.Lyrics)
	if err != nil {
		return nil, &APIError{Endpoint: path, StatusCode: 200, Message: "unreadable lyrics", Err: err}
	}
	return lines, nil
}

// LikeStatus reads the current user's like flag for a song.
func (c *Client) LikeStatus(ctx context.Context, id models.SongID) (models.LikeStatus, error) {
	var status models.LikeStatus
	err := c.getJSON(ctx, "/api/songs/"+url.PathEscape(id.String())+"/like-status", nil, &status)
	return status, err
}

// ToggleLike flips the like flag and returns the server's new state.
func (c *Client) ToggleLike(ctx context.Context, id models.SongID) (models.LikeStatus, error) {
	var status models.LikeStatus
	if err := c.postJSON(ctx, "/api/songs/"+url.PathEscape(id.String())+"/like", nil, &status); err != nil {
		return models.LikeStatus{}, err
	}
	if !status.OK() {
		return status, fmt.Errorf("like toggle rejected: status %q", status.Status)
	}
	return status, nil
}

// Search queries the online catalog. An empty query returns no results
// without contacting the server.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", query)

	var results []models.SearchResult
	if err := c.getJSON(ctx, "/api/search", q, &results); err != nil {
		return nil, err
	}
	log.Debugf("%s %d results for %q", logcolors.LogSearch, len(results), query)
	return results, nil
}

// Download asks the server to fetch a song from the online catalog into its
// library. A rejected download is reported in the result, not as an error.
func (c *Client) Download(ctx context.Context, song, artist string) (models.DownloadResult, error) {
	payload := map[string]string{"song": song, "artist": artist}

	var result models.DownloadResult
	if err := c.postJSON(ctx, "/api/download", payload, &result); err != nil {
		return models.DownloadResult{}, err
	}
	if result.Success {
		log.Infof("%s Downloaded %q by %q", logcolors.LogDownload, song, artist)
	} else {
		log.Warnf("%s Server declined %q: %s", logcolors.LogDownload, song, result.Message)
	}
	return result, nil
}
