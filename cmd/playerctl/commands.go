package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"music-player-go/lyrics"
	"music-player-go/models"
	"music-player-go/player"
	"music-player-go/search"

	"github.com/spf13/cobra"
)

const defaultAddr = "http://localhost:8080"

type globalOptions struct {
	addr   string
	apiKey string
	json   bool
}

type playlistView struct {
	Songs        []models.Song `json:"songs"`
	CurrentIndex int           `json:"current_index"`
	FromPlaylist bool          `json:"from_playlist"`
}

type lyricsView struct {
	Display lyrics.Display `json:"display"`
	Lines   []lyrics.Line  `json:"lines"`
}

type downloadView struct {
	Notification search.Notification `json:"notification"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "playerctl",
		Short:         "Control the music player daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", envOr("PLAYERCTL_ADDR", defaultAddr), "Daemon address (env PLAYERCTL_ADDR)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("PLAYERCTL_API_KEY"), "API key sent as X-API-Key (env PLAYERCTL_API_KEY)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print raw JSON")

	root.AddCommand(
		statusCmd(opts),
		playCmd(opts),
		transportCmd(opts, "toggle", "Toggle play/pause", "/player/toggle"),
		transportCmd(opts, "next", "Play the next song", "/player/next"),
		transportCmd(opts, "prev", "Play the previous song, or restart the current one", "/player/prev"),
		transportCmd(opts, "mode", "Cycle sequence, random and repeat", "/player/mode"),
		transportCmd(opts, "like", "Like or unlike the current song", "/player/like"),
		seekCmd(opts),
		volumeCmd(opts),
		lyricsCmd(opts),
		playlistCmd(opts),
		searchCmd(opts),
		downloadCmd(opts),
	)
	return root
}

// call runs one request and prints either the raw JSON or the rendered view.
func call[T any](cmd *cobra.Command, opts *globalOptions, method, path string, query url.Values, body interface{}, render func(T)) error {
	c, err := newDaemonClient(opts.addr, opts.apiKey)
	if err != nil {
		return err
	}

	var out T
	if err := c.do(cmd.Context(), method, path, query, body, &out); err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	render(out)
	return nil
}

func showStatus(cmd *cobra.Command) func(player.View) {
	return func(v player.View) { renderStatus(cmd.OutOrStdout(), v) }
}

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show what is playing",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, opts, http.MethodGet, "/player", nil, nil, showStatus(cmd))
		},
	}
}

func playCmd(opts *globalOptions) *cobra.Command {
	var display bool
	cmd := &cobra.Command{
		Use:   "play <index>",
		Short: "Play a catalog song by index",
		Long: `Play a song by its index in the full catalog, or with --display by its
index in the displayed list shown by the web page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("index must be a number, got %q", args[0])
			}
			q := url.Values{"index": {args[0]}}
			if display {
				q.Set("display", "true")
			}
			return call(cmd, opts, http.MethodPost, "/player/play", q, nil, showStatus(cmd))
		},
	}
	cmd.Flags().BoolVarP(&display, "display", "d", false, "Index into the displayed list")
	return cmd
}

func transportCmd(opts *globalOptions, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, opts, http.MethodPost, path, nil, nil, showStatus(cmd))
		},
	}
}

func seekCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seek <seconds>",
		Short: "Jump to a position in the current song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseFloat(args[0], 64); err != nil {
				return fmt.Errorf("seconds must be a number, got %q", args[0])
			}
			return call(cmd, opts, http.MethodPost, "/player/seek", url.Values{"t": {args[0]}}, nil, showStatus(cmd))
		},
	}
}

func volumeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "volume <0-100>",
		Short: "Set the output volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("volume must be a number, got %q", args[0])
			}
			v := strconv.FormatFloat(pct/100, 'f', -1, 64)
			return call(cmd, opts, http.MethodPost, "/player/volume", url.Values{"v": {v}}, nil, showStatus(cmd))
		},
	}
}

func lyricsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lyrics",
		Short: "Show the lyrics of the current song",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, opts, http.MethodGet, "/lyrics", nil, nil, func(v lyricsView) {
				renderLyrics(cmd.OutOrStdout(), v.Display, v.Lines)
			})
		},
	}
}

func playlistCmd(opts *globalOptions) *cobra.Command {
	showPlaylist := func(cmd *cobra.Command) func(playlistView) {
		return func(v playlistView) {
			current := -1
			if v.FromPlaylist {
				current = v.CurrentIndex
			}
			renderSongs(cmd.OutOrStdout(), v.Songs, current)
		}
	}

	cmd := &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"pl"},
		Short:   "Manage the playlist",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "List queued songs",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, opts, http.MethodGet, "/playlist", nil, nil, showPlaylist(cmd))
			},
		},
		&cobra.Command{
			Use:   "add <song-id>",
			Short: "Queue a catalog song",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				type addView struct {
					Added bool `json:"added"`
					Size  int  `json:"size"`
				}
				return call(cmd, opts, http.MethodPost, "/playlist", url.Values{"id": {args[0]}}, nil, func(v addView) {
					if v.Added {
						fmt.Fprintf(cmd.OutOrStdout(), "Added, %d songs queued\n", v.Size)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "Already in playlist")
					}
				})
			},
		},
		&cobra.Command{
			Use:   "rm <index>",
			Short: "Remove a queued song",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("index must be a number, got %q", args[0])
				}
				return call(cmd, opts, http.MethodDelete, "/playlist/"+args[0], nil, nil, showPlaylist(cmd))
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the playlist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, opts, http.MethodDelete, "/playlist", nil, nil, showPlaylist(cmd))
			},
		},
		&cobra.Command{
			Use:   "play <index>",
			Short: "Play a queued song",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("index must be a number, got %q", args[0])
				}
				return call(cmd, opts, http.MethodPost, "/playlist/"+args[0]+"/play", nil, nil, showStatus(cmd))
			},
		},
	)
	return cmd
}

func searchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search for songs online",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"q": {strings.Join(args, " ")}}
			return call(cmd, opts, http.MethodGet, "/search", q, nil, func(v search.View) {
				renderSearch(cmd.OutOrStdout(), v)
			})
		},
	}
}

func downloadCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download <song> [artist]",
		Short: "Add a song found online to the catalog",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"song": args[0]}
			if len(args) > 1 {
				body["artist"] = args[1]
			}
			return call(cmd, opts, http.MethodPost, "/download", nil, body, func(v downloadView) {
				renderNotification(cmd.OutOrStdout(), v.Notification)
			})
		},
	}
}
