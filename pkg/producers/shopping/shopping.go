// Package shopping reads a photographed shopping list with a vision model and
// records the items and their quantities.
package shopping

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/TGBox/stat-tracker/pkg/adapters/vision"
	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/tracker"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// Name is the canonical module name.
const Name = "shopping_list_tracker"

// Event types.
const (
	EventProcessed = "shopping_list_processed"
	EventFailed    = "shopping_list_processing_failed"

	NoItems = "no_items_extracted"
)

// List is the value of a shopping_list_processed event. Items are the lines
// as read; Quantities merges them by item name.
type List struct {
	Items      []string       `json:"items"`
	Quantities map[string]int `json:"quantities"`
}

// Producer processes one image per run.
type Producer struct {
	extractor   vision.Extractor
	imagePath   string
	instruction string
	logger      *log.Logger
}

// New constructs a Producer reading imagePath.
func New(ex vision.Extractor, imagePath, instruction string, logger *log.Logger) *Producer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if instruction == "" {
		instruction = config.DefaultInstruction
	}
	return &Producer{extractor: ex, imagePath: imagePath, instruction: instruction, logger: logger}
}

// Factory builds the producer with the configured vision provider.
func Factory(cfg config.Config, logger *log.Logger) producer.Factory {
	return func(ctx context.Context) (producer.Producer, error) {
		sc := cfg.Shopping
		if !sc.Enabled {
			return nil, producer.ErrDisabled
		}
		if sc.ImagePath == "" {
			return nil, errmodel.Validation("missing_config", "shopping.image_path is empty", nil)
		}
		newExtractor, ok := vision.Resolve(sc.Provider)
		if !ok {
			return nil, errmodel.NotFound("unknown_provider", "vision provider not registered", map[string]any{"provider": sc.Provider})
		}
		key := sc.GoogleAPIKey
		if sc.Provider == "openai" {
			key = sc.OpenAIAPIKey
		}
		ex, err := newExtractor(ctx, vision.Config{APIKey: key, Model: sc.Model, Timeout: sc.Timeout})
		if err != nil {
			return nil, err
		}
		return New(ex, sc.ImagePath, sc.Instruction, logger), nil
	}
}

func (p *Producer) Name() string { return Name }

var listSchema = validate.MustSchemaFor[List]()

func (p *Producer) Schemas() map[string][]byte {
	return map[string][]byte{EventProcessed: listSchema}
}

// Produce never returns an error: an unreadable image, a failed model call
// or an empty answer all yield shopping_list_processing_failed.
func (p *Producer) Produce(ctx context.Context) ([]store.Record, error) {
	failed := []store.Record{{EventType: EventFailed, Value: NoItems}}

	data, err := os.ReadFile(p.imagePath)
	if err != nil {
		p.logger.Printf("%s: reading image: %v", Name, err)
		return failed, nil
	}
	img := vision.Image{Data: data, MIMEType: http.DetectContentType(data)}
	lines, err := p.extractor.ExtractItems(ctx, vision.Request{Image: img, Instruction: p.instruction})
	if err != nil {
		p.logger.Printf("%s: %s extraction failed: %v", Name, p.extractor.Name(), err)
		return failed, nil
	}
	if len(lines) == 0 {
		p.logger.Printf("%s: no items found in %s", Name, p.imagePath)
		return failed, nil
	}

	list := tracker.NewShoppingList()
	for _, line := range lines {
		name, qty, err := tracker.ParseItem(line)
		if err == nil {
			err = list.AddItem(name, qty)
		}
		if err != nil {
			p.logger.Printf("%s: skipping %q: %v", Name, line, err)
		}
	}
	return []store.Record{{
		EventType: EventProcessed,
		Value:     List{Items: lines, Quantities: list.Items()},
	}}, nil
}
