// Package gateway talks to the generative AI service (Gemini on Vertex AI) for
// transcription, summaries and study questions.
package gateway

import (
	"errors"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// ErrTranscription marks a transcription that failed or came back error-shaped.
var ErrTranscription = errors.New("transcription failed")

// QA is one generated question with its suggested answer (possibly empty).
type QA struct {
	Question string
	Answer   string
}

// refusalPrefixes open a reply in which the model declined or reported an error
// instead of transcribing. Only the start of the reply is checked; the same words
// inside a transcript are lecture speech.
var refusalPrefixes = []string{
	"error transcribing audio",
	"i am unable to",
	"i cannot fulfill",
	"i cannot transcribe",
	"i cannot provide",
	"i'm sorry, but i cannot",
	"i'm unable to",
	"as a large language model",
}

// checkTranscript turns empty or error-shaped model output into ErrTranscription.
func checkTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.Join(ErrTranscription, errors.New("empty response"))
	}
	lower := strings.ToLower(text)
	for _, prefix := range refusalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", errors.Join(ErrTranscription, errors.New("model reply: "+truncate(text, 120)))
		}
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
