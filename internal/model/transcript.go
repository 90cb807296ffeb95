package model

// TranscriptSegment is one timed caption line.
type TranscriptSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript is the result of a transcript extraction. Failures are
// reported in-band through Success and Error.
type Transcript struct {
	Success     bool                `json:"success"`
	VideoID     string              `json:"video_id"`
	Language    *string             `json:"language"`
	IsGenerated bool                `json:"is_generated"`
	Segments    []TranscriptSegment `json:"segments"`
	FullText    string              `json:"full_text"`
	Error       *string             `json:"error"`
}

// TranscriptLanguage describes one available caption track.
type TranscriptLanguage struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	IsGenerated bool   `json:"is_generated"`
}

// LanguagesResponse lists the caption tracks of a video.
type LanguagesResponse struct {
	Success   bool                 `json:"success"`
	VideoID   string               `json:"video_id"`
	Languages []TranscriptLanguage `json:"languages"`
	Error     string               `json:"error,omitempty"`
}
