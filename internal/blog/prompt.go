package blog

import (
	"strings"
)

const promptTemplate = `You are a skilled content writer who converts audio transcriptions into engaging blog posts using Markdown only.

Style reference (analyze and emulate voice, vocabulary, pacing, and formatting):
{{posts}}

Write a blog post based on the transcript below. Follow these hard rules:
1) First line must be an SEO-friendly H1 title: "# Your Title".
2) Then add exactly two newlines.
3) Write an engaging introduction (2-4 sentences).
4) Organize the body into 3-5 sections with clear H2 headings (##). Use H3 (###) for sub-points if helpful.
5) Use bullet or numbered lists where it improves readability.
6) Include a "Key Takeaways" section with 3-5 concise bullets near the end.
7) End with a brief conclusion and an optional call to action relevant to the content.
8) Keep the tone casual-professional and consistent with the style reference.
9) Do not invent facts beyond the transcript; you may generalize prudently. No external links or citations unless present in the transcript.
10) Output pure Markdown, with no code fences, no front matter, and no preamble like "Here is your post".

Length guidance:
- Aim for ~600-900 words. If the transcript is short or fragmented, write a compact but coherent post (~300-600 words) that synthesizes the main ideas.

If the transcript mentions specific terms, quotes, or phrases worth highlighting, consider using:
- Blockquotes for notable lines.
- Short lists for steps, tips, or examples.

Transcript:
{{transcript}}`

// BuildPrompt embeds the style reference and the transcript, verbatim, into
// the generation instructions.
func BuildPrompt(transcript, priorPosts string) string {
	if strings.TrimSpace(priorPosts) == "" {
		priorPosts = noPriorPosts
	}
	r := strings.NewReplacer("{{posts}}", priorPosts, "{{transcript}}", transcript)
	return strings.TrimSpace(r.Replace(promptTemplate))
}
