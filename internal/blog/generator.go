// Package blog turns a transcript into a Markdown blog post.
package blog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/gemini"
	"github.com/nikhilbhutani/speakpost/pkg/tokenizer"
)

const (
	operation = "blog generation"

	DefaultTitle = "Generated Blog Post"
	noPriorPosts = "No previous posts"
)

// ErrEmptyGeneration is returned when the model produced no usable text.
var ErrEmptyGeneration = generationError("Invalid blog response from Gemini API")

type generationError string

func (e generationError) Error() string       { return string(e) }
func (e generationError) UserMessage() string { return string(e) }

// GenerationConfig trades some determinism for livelier prose.
var GenerationConfig = gemini.GenerationConfig{
	Temperature:     0.7,
	MaxOutputTokens: 2048,
}

// Invoker calls the generation API.
type Invoker interface {
	Invoke(ctx context.Context, req *gemini.GenerateContentRequest, operation, model string) (*gemini.Response, error)
}

type Generator struct {
	client Invoker
	model  string
	log    zerolog.Logger
}

func NewGenerator(client Invoker, model string, log zerolog.Logger) *Generator {
	return &Generator{
		client: client,
		model:  model,
		log:    log.With().Str("component", "blog").Logger(),
	}
}

// Generate writes a post for transcript in the style of priorPosts, which may
// be empty. Retries happen inside the client only.
func (g *Generator) Generate(ctx context.Context, transcript, priorPosts string) (string, error) {
	prompt := BuildPrompt(transcript, priorPosts)
	req := &gemini.GenerateContentRequest{
		Contents:         []gemini.Content{{Parts: []gemini.Part{gemini.TextPart(prompt)}}},
		GenerationConfig: GenerationConfig,
	}
	g.log.Debug().Int("prompt_tokens_est", tokenizer.Estimate(prompt)).
		Bool("has_prior_posts", priorPosts != "").Msg("generating blog post")

	resp, err := g.client.Invoke(ctx, req, operation, g.model)
	if err != nil {
		return "", fmt.Errorf("generate blog post: %w", err)
	}

	text, shape, err := gemini.ExtractTextShape(resp)
	if err != nil {
		g.log.Warn().Err(err).Msg("no usable text in blog response")
		return "", ErrEmptyGeneration
	}

	g.log.Debug().Str("shape", string(shape)).Int("length", len(text)).Msg("blog post generated")
	return text, nil
}

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// Title returns the first non-blank line of markdown without its heading
// marks, or DefaultTitle.
func Title(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if title := strings.TrimSpace(headingPrefix.ReplaceAllString(strings.TrimSpace(line), "")); title != "" {
			return title
		}
		return DefaultTitle
	}
	return DefaultTitle
}
