// Package transcript extracts caption tracks from YouTube videos through the
// innertube player endpoint and the timedtext XML format.
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/pkg/retry"
)

const (
	defaultPlayerURL = "https://www.youtube.com/youtubei/v1/player"
	androidVersion   = "20.10.38"
	androidUA        = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
	maxPlayerBytes   = 3 << 20
	maxCaptionBytes  = 2 << 20
)

// DefaultLanguages is the preference order used when the caller gives none.
var DefaultLanguages = []string{"ko", "en"}

var (
	ErrVideoUnavailable = errors.New("영상을 찾을 수 없거나 비공개 상태입니다.")
	ErrDisabled         = errors.New("이 영상은 자막이 비활성화되어 있습니다.")
	ErrNoTranscript     = errors.New("이 영상에 사용 가능한 자막이 없습니다.")
)

// Track is one caption track offered by the player.
type Track struct {
	BaseURL      string
	LanguageCode string
	Name         string
	Generated    bool
}

// Config configures a Fetcher.
type Config struct {
	PlayerURL  string
	HTTPClient *http.Client
	Retry      retry.Config
}

// Fetcher talks to the innertube player and timedtext endpoints.
type Fetcher struct {
	playerURL string
	http      *http.Client
	retry     retry.Config
}

// NewFetcher creates a Fetcher with defaults for unset fields.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.PlayerURL == "" {
		cfg.PlayerURL = defaultPlayerURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialWait == 0 {
		cfg.Retry = retry.Default
	}
	return &Fetcher{playerURL: cfg.PlayerURL, http: cfg.HTTPClient, retry: cfg.Retry}
}

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion"`
	Hl                string `json:"hl"`
	Gl                string `json:"gl"`
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []struct {
				BaseURL      string    `json:"baseUrl"`
				LanguageCode string    `json:"languageCode"`
				Kind         string    `json:"kind"`
				Name         trackName `json:"name"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type trackName struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (n trackName) String() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	var sb strings.Builder
	for _, r := range n.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Tracks lists the caption tracks of a video.
func (f *Fetcher) Tracks(ctx context.Context, videoID string) ([]Track, error) {
	body, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{Client: playerClient{
			ClientName:        "ANDROID",
			ClientVersion:     androidVersion,
			AndroidSdkVersion: 30,
			Hl:                "ko",
			Gl:                "KR",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := retry.HTTP(ctx, f.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.playerURL+"?prettyPrint=false", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", androidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", androidVersion)
		return f.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player request: HTTP %d", resp.StatusCode)
	}

	var pr playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlayerBytes)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}

	if ps := pr.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		log.Debug().Str("video_id", videoID).Str("status", ps.Status).Str("reason", ps.Reason).Msg("video not playable")
		if pr.Captions == nil {
			return nil, ErrVideoUnavailable
		}
	}
	if pr.Captions == nil {
		return nil, ErrDisabled
	}

	raw := pr.Captions.Renderer.CaptionTracks
	if len(raw) == 0 {
		return nil, ErrNoTranscript
	}
	tracks := make([]Track, 0, len(raw))
	for _, t := range raw {
		name := t.Name.String()
		if name == "" {
			name = t.LanguageCode
		}
		tracks = append(tracks, Track{
			BaseURL:      t.BaseURL,
			LanguageCode: t.LanguageCode,
			Name:         name,
			Generated:    t.Kind == "asr",
		})
	}
	return tracks, nil
}

// PickTrack selects a track: a manual track in each preferred language,
// then a generated track in each preferred language, then the first track.
func PickTrack(tracks []Track, langs []string) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if !t.Generated && t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if t.Generated && t.LanguageCode == lang {
				return t, true
			}
		}
	}
	return tracks[0], true
}

type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// Segments downloads and parses a track's timedtext XML.
func (f *Fetcher) Segments(ctx context.Context, t Track) ([]model.TranscriptSegment, error) {
	resp, err := retry.HTTP(ctx, f.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", androidUA)
		return f.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return nil, err
	}
	return ParseTimedText(body)
}

// ParseTimedText converts timedtext XML into segments. Start and duration
// are rounded to two decimals; blank lines are dropped.
func ParseTimedText(body []byte) ([]model.TranscriptSegment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]model.TranscriptSegment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(line.Start, 64)
		dur, _ := strconv.ParseFloat(line.Dur, 64)
		segs = append(segs, model.TranscriptSegment{
			Start:    round2(start),
			Duration: round2(dur),
			Text:     text,
		})
	}
	return segs, nil
}

// Fetch extracts the best transcript for langs. Failures are reported in
// the result rather than as an error.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, langs []string) *model.Transcript {
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	res := &model.Transcript{VideoID: videoID, Segments: []model.TranscriptSegment{}}

	tracks, err := f.Tracks(ctx, videoID)
	if err != nil {
		res.Error = errorText(err)
		return res
	}
	track, ok := PickTrack(tracks, langs)
	if !ok {
		res.Error = errorText(ErrNoTranscript)
		return res
	}

	segs, err := f.Segments(ctx, track)
	if err != nil {
		res.Error = errorText(err)
		return res
	}

	lang := track.LanguageCode
	res.Language = &lang
	res.IsGenerated = track.Generated
	res.Segments = segs
	res.FullText = JoinText(segs)
	res.Success = true
	return res
}

// Languages lists the caption tracks of a video.
func (f *Fetcher) Languages(ctx context.Context, videoID string) *model.LanguagesResponse {
	res := &model.LanguagesResponse{VideoID: videoID, Languages: []model.TranscriptLanguage{}}
	tracks, err := f.Tracks(ctx, videoID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	for _, t := range tracks {
		res.Languages = append(res.Languages, model.TranscriptLanguage{
			Code:        t.LanguageCode,
			Name:        t.Name,
			IsGenerated: t.Generated,
		})
	}
	res.Success = true
	return res
}

// JoinText concatenates segment text with newlines.
func JoinText(segs []model.TranscriptSegment) string {
	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = s.Text
	}
	return strings.Join(lines, "\n")
}

// ParseLanguages splits a comma separated preference list.
func ParseLanguages(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return DefaultLanguages
	}
	return out
}

func errorText(err error) *string {
	var msg string
	switch {
	case errors.Is(err, ErrVideoUnavailable), errors.Is(err, ErrDisabled), errors.Is(err, ErrNoTranscript):
		msg = err.Error()
	default:
		msg = "자막 추출 중 오류 발생: " + err.Error()
	}
	return &msg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
