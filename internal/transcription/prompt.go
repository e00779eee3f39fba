package transcription

import (
	"fmt"

	"github.com/nikhilbhutani/speakpost/internal/gemini"
	"github.com/nikhilbhutani/speakpost/internal/media"
)

const instructionTemplate = `Please carefully transcribe all spoken words from this %s file.

Instructions:
- Extract ALL spoken words accurately
- Maintain the natural flow and timing of speech
- Include natural pauses and emphasis where appropriate
- If multiple speakers, try to distinguish them
- If there is background music or noise, focus only on the speech
- If there is absolutely NO speech content, respond with exactly: "` + NoSpeechSentinel + `"
- Do not add any commentary, just provide the raw transcription

Transcribe everything you hear:`

// GenerationConfig is tuned for verbatim output.
var GenerationConfig = gemini.GenerationConfig{
	Temperature:     0.1,
	MaxOutputTokens: 4096,
	TopP:            0.8,
	TopK:            40,
}

// Instructions returns the transcription prompt for a media kind.
func Instructions(kind media.Kind) string {
	noun := "video"
	if kind == media.KindAudio {
		noun = "audio"
	}
	return fmt.Sprintf(instructionTemplate, noun)
}

// BuildRequest assembles the inline-data transcription request.
func BuildRequest(class media.Classification, base64Data string) *gemini.GenerateContentRequest {
	return &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Parts: []gemini.Part{
				gemini.InlinePart(class.MimeType, base64Data),
				gemini.TextPart(Instructions(class.Kind)),
			},
		}},
		GenerationConfig: GenerationConfig,
	}
}
