package whisper

import "strings"

// Segment is one timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the engine output for one audio file.
type Transcript struct {
	Segments            []Segment
	Language            string
	LanguageProbability float64
	Duration            float64
}

// Text joins the segment texts exactly as the engine produced them, without
// separators or trimming.
func (t Transcript) Text() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}
