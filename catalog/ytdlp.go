package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leeineian/smartradio/radio"
	"github.com/lrstanley/go-ytdlp"
)

const fieldSep = "\t"

type ytdlpRunner struct {
	proxy string
}

func (y *ytdlpRunner) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoWarnings().
		IgnoreConfig()
	if y.proxy != "" {
		cmd.Proxy(y.proxy)
	}
	return cmd
}

// search runs a flat "ytsearchN:" query.
func (y *ytdlpRunner) search(ctx context.Context, query string, max int) ([]radio.Candidate, error) {
	res, err := y.command().
		FlatPlaylist().
		Print("%(id)s\t%(title)s\t%(uploader)s\t%(duration)s").
		PlaylistItems(fmt.Sprintf("1-%d", max)).
		Run(ctx, fmt.Sprintf("ytsearch%d:%s", max, query))
	if err != nil {
		return nil, err
	}
	return parseFlatLines(res.Stdout), nil
}

// playlist lists up to max entries of a playlist link.
func (y *ytdlpRunner) playlist(ctx context.Context, u string, max int) ([]radio.Candidate, error) {
	res, err := y.command().
		FlatPlaylist().
		Print("%(id)s\t%(title)s\t%(uploader)s\t%(duration)s").
		PlaylistItems(fmt.Sprintf("1-%d", max)).
		Run(ctx, u)
	if err != nil {
		return nil, err
	}
	return parseFlatLines(res.Stdout), nil
}

// metadata resolves a single link without downloading it.
func (y *ytdlpRunner) metadata(ctx context.Context, u string) (radio.Candidate, error) {
	res, err := y.command().
		Print("%(id)s\t%(title)s\t%(uploader)s\t%(duration)s").
		NoPlaylist().
		Run(ctx, "--skip-download", u)
	if err != nil {
		if res != nil && strings.Contains(strings.ToLower(res.Stderr), "drm") {
			return radio.Candidate{}, fmt.Errorf("DRM: %w", err)
		}
		return radio.Candidate{}, err
	}
	if hits := parseFlatLines(res.Stdout); len(hits) > 0 {
		return hits[0], nil
	}
	return radio.Candidate{}, errors.New("failed to parse metadata")
}

// parseFlatLines reads "id\ttitle\tuploader\tduration" lines. yt-dlp prints
// "NA" for unknown fields and durations as fractional seconds.
func parseFlatLines(out string) []radio.Candidate {
	var hits []radio.Candidate
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.Split(l, fieldSep)
		if len(ps) < 4 {
			continue
		}
		id := strings.TrimSpace(ps[0])
		if id == "" || id == "NA" {
			continue
		}
		secs := 0
		if f, err := strconv.ParseFloat(strings.TrimSpace(ps[3]), 64); err == nil && f > 0 {
			secs = int(f)
		}
		channel := ps[2]
		if channel == "NA" {
			channel = ""
		}
		hits = append(hits, radio.Candidate{
			Title:     ps[1],
			URL:       WatchURL(id),
			ID:        id,
			Thumbnail: ThumbnailURL(id),
			Channel:   channel,
			Seconds:   secs,
		})
	}
	return hits
}
