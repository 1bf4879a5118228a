// Package openai implements the vision extractor on OpenAI chat completions.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/TGBox/stat-tracker/pkg/adapters/vision"
)

const defaultModel = "gpt-4o-mini"

// Extractor sends the image as a data URL and requests a strict JSON schema answer.
type Extractor struct {
	client oa.Client
	model  string
	schema map[string]any
}

func (e *Extractor) Name() string { return "openai" }

func (e *Extractor) ExtractItems(ctx context.Context, req vision.Request) ([]string, error) {
	dataURL := "data:" + req.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
	msg := oa.UserMessage([]oa.ChatCompletionContentPartUnionParam{
		oa.TextContentPart(req.Instruction),
		oa.ImageContentPart(oa.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	})
	resp, err := e.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(e.model),
		Messages: []oa.ChatCompletionMessageParamUnion{msg},
		ResponseFormat: oa.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "shopping_list_items",
					Schema: e.schema,
					Strict: oa.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, vision.ProviderError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, vision.ProviderError("openai", fmt.Errorf("response has no choices"))
	}
	return vision.DecodeItems(resp.Choices[0].Message.Content)
}

// New creates an OpenAI extractor. cfg.APIKey is required; callers read it from OPENAI_API_KEY.
func New(ctx context.Context, cfg vision.Config) (vision.Extractor, error) {
	_ = ctx
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key; set OPENAI_API_KEY")
	}
	var schema map[string]any
	if err := json.Unmarshal(vision.ItemsSchema, &schema); err != nil {
		return nil, err
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.Client()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}
	return &Extractor{client: oa.NewClient(opts...), model: model, schema: schema}, nil
}

func init() {
	_ = vision.Register("openai", New)
}
