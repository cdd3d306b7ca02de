package llm

import "context"

// Part is one piece of a multimodal prompt: plain text, inline bytes, or a
// reference to already-uploaded media.
type Part struct {
	Text string

	// Inline media, base64-encoded by the client.
	MimeType string
	Data     []byte

	// Remote media reference.
	FileURI string
}

func TextPart(text string) Part { return Part{Text: text} }

func InlinePart(mimeType string, data []byte) Part {
	return Part{MimeType: mimeType, Data: data}
}

func FilePart(mimeType, uri string) Part {
	return Part{MimeType: mimeType, FileURI: uri}
}

// Option allows optional parameters like Temperature or a model override.
type Option func(*Options)

type Options struct {
	Temperature float64
	Model       string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) { o.Temperature = temp }
}

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// LLMProvider is the contract for any generation backend.
type LLMProvider interface {
	// Generate sends a single text prompt to the model.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// GenerateMultimodal sends a mixed prompt of text and media parts.
	GenerateMultimodal(ctx context.Context, parts []Part, options ...Option) (string, error)
}
