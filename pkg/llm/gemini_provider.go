package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"kisaanbot-be/internal/pkg/logger"
)

type GeminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type GeminiFileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inline_data,omitempty"`
	FileData   *GeminiFileData   `json:"file_data,omitempty"`
}

type GeminiContent struct {
	Parts []*GeminiPart `json:"parts"`
	Role  string        `json:"role,omitempty"`
}

type GeminiGenerationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type GeminiRequest struct {
	Contents         []*GeminiContent        `json:"contents"`
	GenerationConfig *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiCandidate struct {
	Content *GeminiContent `json:"content"`
}

type GeminiResponse struct {
	Candidates []*GeminiCandidate `json:"candidates"`
}

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the Generative Language REST API directly.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     logger.ILogger
}

type GeminiOption func(*GeminiProvider)

func WithBaseURL(url string) GeminiOption {
	return func(p *GeminiProvider) { p.baseURL = url }
}

func WithHTTPClient(c *http.Client) GeminiOption {
	return func(p *GeminiProvider) { p.client = c }
}

func NewGeminiProvider(apiKey, model string, log logger.ILogger, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{},
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return p.GenerateMultimodal(ctx, []Part{TextPart(prompt)}, options...)
}

func (p *GeminiProvider) GenerateMultimodal(ctx context.Context, parts []Part, options ...Option) (string, error) {
	opts := Options{}
	for _, opt := range options {
		opt(&opts)
	}
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	geminiParts := make([]*GeminiPart, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.FileURI != "":
			geminiParts = append(geminiParts, &GeminiPart{
				FileData: &GeminiFileData{MimeType: part.MimeType, FileURI: part.FileURI},
			})
		case len(part.Data) > 0:
			geminiParts = append(geminiParts, &GeminiPart{
				InlineData: &GeminiInlineData{
					MimeType: part.MimeType,
					Data:     base64.StdEncoding.EncodeToString(part.Data),
				},
			})
		case part.Text != "":
			geminiParts = append(geminiParts, &GeminiPart{Text: part.Text})
		}
	}
	if len(geminiParts) == 0 {
		return "", fmt.Errorf("empty prompt")
	}

	payload := GeminiRequest{
		Contents: []*GeminiContent{{Parts: geminiParts, Role: "user"}},
	}
	if opts.Temperature > 0 {
		payload.GenerationConfig = &GeminiGenerationConfig{Temperature: opts.Temperature}
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var geminiRes GeminiResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", err
	}
	if len(geminiRes.Candidates) == 0 ||
		geminiRes.Candidates[0].Content == nil ||
		len(geminiRes.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty candidates in model response")
	}

	p.log.Info("llm", "gemini generate done", map[string]interface{}{
		"model": model, "parts": len(geminiParts),
	})
	return geminiRes.Candidates[0].Content.Parts[0].Text, nil
}
