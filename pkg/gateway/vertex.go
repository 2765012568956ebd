package gateway

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"
)

// VertexConfig selects the project, region and Gemini model.
type VertexConfig struct {
	ProjectID string
	Region    string
	Model     string
}

// Vertex holds the pre-configured generative models used by the lecture service.
type Vertex struct {
	TranscriberModel *genai.GenerativeModel
	SummarizerModel  *genai.GenerativeModel
	QuestionModel    *genai.GenerativeModel
	baseClient       *genai.Client
	logger           *zap.Logger
}

// NewVertex creates a Vertex AI client holding all necessary models.
func NewVertex(ctx context.Context, cfg VertexConfig, logger *zap.Logger) (*Vertex, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertex: projectID and region cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	transcriber := baseClient.GenerativeModel(cfg.Model)
	transcriber.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranscriberSystemPrompt)},
	}
	transcriber.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	summarizer := baseClient.GenerativeModel(cfg.Model)
	summarizer.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarizerSystemPrompt)},
	}

	questioner := baseClient.GenerativeModel(cfg.Model)
	questioner.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(QuestionSystemPrompt)},
	}
	questioner.GenerationConfig = genai.GenerationConfig{
		// Structured output for ParseQuestions.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	logger.Info("Vertex AI client created", zap.String("project_id", cfg.ProjectID), zap.String("region", cfg.Region), zap.String("model", cfg.Model))
	return &Vertex{
		TranscriberModel: transcriber,
		SummarizerModel:  summarizer,
		QuestionModel:    questioner,
		baseClient:       baseClient,
		logger:           logger,
	}, nil
}

// Transcribe sends the audio inline and returns its transcript.
// Failures and error-shaped replies wrap ErrTranscription.
func (v *Vertex) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := v.TranscriberModel.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: audio},
		genai.Text(TranscriberUserPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	text, err := checkTranscript(responseText(resp))
	if err != nil {
		return "", err
	}
	v.logger.Debug("transcription complete", zap.Int("audio_bytes", len(audio)), zap.Int("chars", len(text)))
	return text, nil
}

// Summarize returns a concise summary of transcript.
func (v *Vertex) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := v.SummarizerModel.GenerateContent(ctx, genai.Text(fmt.Sprintf(SummarizerUserPrompt, transcript)))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return stripFences(responseText(resp)), nil
}

// GenerateQuestions returns up to count study questions about transcript.
func (v *Vertex) GenerateQuestions(ctx context.Context, transcript string, count int) ([]QA, error) {
	prompt := fmt.Sprintf(QuestionUserPrompt, count, transcript, count)
	resp, err := v.QuestionModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	raw := responseText(resp)
	qas := ParseQuestions(raw, count)
	if len(qas) == 0 && raw != "" {
		v.logger.Warn("question generator reply had no usable questions", zap.String("reply", truncate(raw, 200)))
	}
	return qas, nil
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	if v.baseClient != nil {
		return v.baseClient.Close()
	}
	return nil
}
