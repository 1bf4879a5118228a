// Package vision reads shopping list items out of an image with a multimodal
// model. Providers register themselves by name from their init functions.
package vision

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// Image is an encoded picture.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request asks for the items visible in Image.
type Request struct {
	Image       Image
	Instruction string
}

// Extractor turns a picture of a list into its lines.
type Extractor interface {
	// Name returns the provider name (e.g., "gemini").
	Name() string
	// ExtractItems returns the raw item lines, quantities included as written.
	ExtractItems(ctx context.Context, req Request) ([]string, error)
}

// Config is the provider-independent client configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the traced default client.
	HTTPClient *http.Client
}

// Client returns cfg.HTTPClient or a traced client honoring cfg.Timeout.
func (c Config) Client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// Factory constructs an Extractor.
type Factory func(ctx context.Context, cfg Config) (Extractor, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("vision: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("vision: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("vision: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Providers lists the registered provider names, sorted.
func Providers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ItemsSchema is the JSON Schema every provider is asked to answer with.
var ItemsSchema = []byte(`{
  "type": "object",
  "properties": {
    "items": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["items"],
  "additionalProperties": false
}`)

var itemsSchema = validate.MustCompile("shopping_list_items", ItemsSchema)

// DecodeItems validates a model answer against ItemsSchema and returns its
// non-blank items. A surrounding markdown code fence is tolerated.
func DecodeItems(text string) ([]string, error) {
	var res struct {
		Items []string `json:"items"`
	}
	if err := itemsSchema.Decode([]byte(stripFence(text)), &res); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ProviderError wraps a failed model call.
func ProviderError(provider string, err error) error {
	return errmodel.Model("vision_failed", provider+" request failed", map[string]any{"provider": provider}, err)
}
