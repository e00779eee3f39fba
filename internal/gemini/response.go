package gemini

import (
	"strings"
)

// Response is a decoded generateContent response. The provider has returned
// text in several places over time, so every known location is modelled and
// ExtractText decides which one to use.
type Response struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

type Candidate struct {
	Content      *CandidateContent `json:"content,omitempty"`
	Text         string            `json:"text,omitempty"`
	Output       *CandidateOutput  `json:"output,omitempty"`
	FinishReason string            `json:"finishReason,omitempty"`
}

type CandidateContent struct {
	Role  string          `json:"role,omitempty"`
	Parts []CandidatePart `json:"parts"`
}

type CandidatePart struct {
	Text string `json:"text,omitempty"`
}

type CandidateOutput struct {
	Text string `json:"text,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Shape names the response location text was extracted from.
type Shape string

const (
	ShapeNone        Shape = ""
	ShapeFirstPart   Shape = "content.parts[0].text"
	ShapeDirectText  Shape = "text"
	ShapeOutputText  Shape = "output.text"
	ShapeJoinedParts Shape = "content.parts[*].text"
)

// ExtractText returns the generated text from the first candidate.
// The text is returned untrimmed.
func ExtractText(resp *Response) (string, error) {
	text, _, err := ExtractTextShape(resp)
	return text, err
}

// ExtractTextShape is ExtractText that also reports which shape matched.
// Locations are tried in order and the first one that is non-empty after
// trimming wins.
func ExtractTextShape(resp *Response) (string, Shape, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ShapeNone, malformedError("no candidates in response", nil)
	}
	c := resp.Candidates[0]

	if c.Content != nil && len(c.Content.Parts) > 0 && nonBlank(c.Content.Parts[0].Text) {
		return c.Content.Parts[0].Text, ShapeFirstPart, nil
	}
	if nonBlank(c.Text) {
		return c.Text, ShapeDirectText, nil
	}
	if c.Output != nil && nonBlank(c.Output.Text) {
		return c.Output.Text, ShapeOutputText, nil
	}
	if c.Content != nil {
		var texts []string
		for _, p := range c.Content.Parts {
			if nonBlank(p.Text) {
				texts = append(texts, p.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, " "), ShapeJoinedParts, nil
		}
	}

	return "", ShapeNone, malformedError("no text content in first candidate", nil)
}

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
