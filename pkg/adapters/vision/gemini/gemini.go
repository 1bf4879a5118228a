// Package gemini implements the vision extractor on the Gemini API.
package gemini

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"github.com/TGBox/stat-tracker/pkg/adapters/vision"
)

const defaultModel = "gemini-2.5-flash-lite"

// Extractor calls GenerateContent with the image inline and a response schema.
type Extractor struct {
	client *genai.Client
	model  string
}

func (e *Extractor) Name() string { return "gemini" }

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"items"},
}

func (e *Extractor) ExtractItems(ctx context.Context, req vision.Request) ([]string, error) {
	parts := []*genai.Part{
		{Text: req.Instruction},
		{InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data}},
	}
	res, err := e.client.Models.GenerateContent(ctx, e.model, []*genai.Content{{Role: "user", Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return nil, vision.ProviderError("gemini", err)
	}
	return vision.DecodeItems(res.Text())
}

// New creates a Gemini extractor. cfg.APIKey is required; callers read it from GOOGLE_API_KEY.
func New(ctx context.Context, cfg vision.Config) (vision.Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key; set GOOGLE_API_KEY")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.Client(),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}
	return &Extractor{client: client, model: model}, nil
}

func init() {
	_ = vision.Register("gemini", New)
}
