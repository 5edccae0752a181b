package main

import (
	"fmt"
	"io"

	"music-player-go/lyrics"
	"music-player-go/models"
	"music-player-go/player"
	"music-player-go/search"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func stateColor(s player.State) text.Colors {
	switch s {
	case player.Playing:
		return text.Colors{text.FgGreen}
	case player.Paused:
		return text.Colors{text.FgYellow}
	case player.Loading:
		return text.Colors{text.FgCyan}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

func renderStatus(w io.Writer, v player.View) {
	t := newTable(w)
	t.SetTitle("Now playing")

	song := "-"
	if v.Song != nil {
		song = fmt.Sprintf("%s - %s", v.Song.Name, v.Song.Artist)
	}
	source := "catalog"
	if v.FromPlaylist {
		source = fmt.Sprintf("playlist #%d", v.PlaylistIndex)
	}
	liked := ""
	if v.IsLiked {
		liked = "♥ "
	}

	t.AppendRows([]table.Row{
		{"State", stateColor(v.State).Sprint(v.State.String())},
		{"Song", song},
		{"Position", fmt.Sprintf("%s / %s", models.FormatTime(v.CurrentTime), models.FormatTime(v.Duration))},
		{"Source", source},
		{"Mode", v.ModeTitle},
		{"Volume", fmt.Sprintf("%d%%", int(v.Volume*100+0.5))},
		{"Likes", fmt.Sprintf("%s%d", liked, v.LikesCount)},
		{"Catalog", fmt.Sprintf("%d songs, %d displayed, %d queued", v.CatalogSize, v.DisplayedSize, v.PlaylistSize)},
	})
	if v.LastError != "" {
		t.AppendRow(table.Row{"Error", text.FgRed.Sprint(v.LastError)})
	}
	t.Render()
}

func renderSongs(w io.Writer, songs []models.Song, current int) {
	if len(songs) == 0 {
		fmt.Fprintln(w, "No songs")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "", "Title", "Artist", "Length", "Likes"})
	for i, s := range songs {
		marker := ""
		if i == current {
			marker = "▶"
		}
		t.AppendRow(table.Row{i, marker, s.Name, s.Artist, models.FormatTime(s.Duration), s.LikesCount})
	}
	t.Render()
}

func renderLyrics(w io.Writer, display lyrics.Display, lines []lyrics.Line) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No lyrics")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Time", "Line"})
	for i, l := range lines {
		line := l.Text
		if i == display.Index {
			line = text.Bold.Sprint(line)
		}
		t.AppendRow(table.Row{models.FormatTime(l.Timestamp), line})
	}
	t.Render()
}

func renderSearch(w io.Writer, v search.View) {
	if v.Error != "" {
		fmt.Fprintln(w, text.FgRed.Sprint(v.Error))
		return
	}
	if len(v.Results) == 0 {
		fmt.Fprintf(w, "No results for %q\n", v.Query)
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Title", "Artist", "Album", "Length"})
	for _, r := range v.Results {
		t.AppendRow(table.Row{r.Title, r.Artist, r.Album, models.FormatTime(float64(r.Duration))})
	}
	t.Render()
	fmt.Fprintln(w, "\nDownload with: playerctl download <song> <artist>")
}

func renderNotification(w io.Writer, n search.Notification) {
	if n.Kind == search.KindError {
		fmt.Fprintln(w, text.FgRed.Sprint(n.Message))
		return
	}
	fmt.Fprintln(w, text.FgGreen.Sprint(n.Message))
}
