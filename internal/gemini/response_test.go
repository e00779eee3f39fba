package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) *Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return &resp
}

func TestExtractTextShapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		text  string
		shape Shape
	}{
		{
			name:  "first part",
			raw:   `{"candidates":[{"content":{"parts":[{"text":"  hi  "},{"text":"ignored"}]}}]}`,
			text:  "  hi  ",
			shape: ShapeFirstPart,
		},
		{
			name:  "direct text",
			raw:   `{"candidates":[{"text":"direct"}]}`,
			text:  "direct",
			shape: ShapeDirectText,
		},
		{
			name:  "output text",
			raw:   `{"candidates":[{"content":{"parts":[{"text":"  "}]},"output":{"text":"out"}}]}`,
			text:  "out",
			shape: ShapeOutputText,
		},
		{
			name:  "joined parts",
			raw:   `{"candidates":[{"content":{"parts":[{"text":""},{"text":"a"},{"text":"  "},{"text":"b"}]}}]}`,
			text:  "a b",
			shape: ShapeJoinedParts,
		},
		{
			name:  "direct text preferred over output",
			raw:   `{"candidates":[{"text":"direct","output":{"text":"out"}}]}`,
			text:  "direct",
			shape: ShapeDirectText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, shape, err := ExtractTextShape(decode(t, tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.text, text)
			require.Equal(t, tt.shape, shape)
		})
	}
}

func TestExtractTextMalformed(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{}]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"   "}]},"text":"\n"}]}`,
	} {
		_, err := ExtractText(decode(t, raw))
		require.True(t, IsKind(err, KindMalformedResponse), raw)
	}

	_, err := ExtractText(nil)
	require.True(t, IsKind(err, KindMalformedResponse))
}

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("transcribe: %w", statusError(429, ""))
	require.Equal(t, msgRateLimited, UserMessage(wrapped))
	require.Equal(t, msgGeneric, UserMessage(errors.New("boom")))
	require.Empty(t, UserMessage(nil))
}

func TestErrorString(t *testing.T) {
	err := statusError(503, `{"error":{"status":"UNAVAILABLE"}}`)
	require.Contains(t, err.Error(), "service_unavailable")
	require.Contains(t, err.Error(), "HTTP 503")
	require.True(t, err.Retryable())
	require.False(t, missingCredentialError().Retryable())
}
