// Package browserhistory records the videos watched in Firefox, read from
// its local history database.
package browserhistory

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// Name is the registry name of the module.
const Name = "youtube_tracker"

// SourceModule is written on every record so history rows keep the name
// older logs used.
const SourceModule = "youtube_firefox_tracker"

// Event types.
const (
	EventWatched = "youtube_video_watched"
	EventFailed  = "browser_history_failed"

	NoData = "no_data_available"
)

// DefaultPattern matches YouTube watch pages.
const DefaultPattern = "%youtube.com/watch%"

// Watched is the value of a youtube_video_watched event.
type Watched struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Producer emits one event per matching visit within the window.
type Producer struct {
	history History
	pattern string
	window  time.Duration
	now     func() time.Time
	logger  *log.Logger
}

// Option configures a Producer.
type Option func(*Producer)

// WithClock overrides the clock the window is measured from.
func WithClock(now func() time.Time) Option { return func(p *Producer) { p.now = now } }

// WithLogger sets the logger for read failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Producer. An empty pattern means DefaultPattern and a
// non-positive window means 24 hours.
func New(h History, pattern string, window time.Duration, opts ...Option) *Producer {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	p := &Producer{history: h, pattern: pattern, window: window, now: time.Now, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Factory builds the producer. Without a configured path the default
// Firefox profile is searched.
func Factory(cfg config.Config, logger *log.Logger) producer.Factory {
	return func(ctx context.Context) (producer.Producer, error) {
		bc := cfg.Browser
		if !bc.Enabled {
			return nil, producer.ErrDisabled
		}
		path := bc.PlacesPath
		if path == "" {
			p, err := DefaultPlacesPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return New(Firefox{Path: path}, bc.Pattern, bc.Window, WithLogger(logger)), nil
	}
}

func (p *Producer) Name() string { return Name }

var watchedSchema = validate.MustSchemaFor[Watched]()

func (p *Producer) Schemas() map[string][]byte {
	return map[string][]byte{EventWatched: watchedSchema}
}

// Produce reports each visit at its visit time.
func (p *Producer) Produce(ctx context.Context) ([]store.Record, error) {
	visits, err := p.history.Visits(ctx, p.pattern, p.now().Add(-p.window))
	if err != nil {
		p.logger.Printf("%s: reading history failed: %v", Name, err)
		return []store.Record{{SourceModule: SourceModule, EventType: EventFailed, Value: NoData}}, nil
	}
	out := make([]store.Record, 0, len(visits))
	for _, v := range visits {
		out = append(out, store.Record{
			Timestamp:    store.FormatTimestamp(v.Time),
			SourceModule: SourceModule,
			EventType:    EventWatched,
			Value:        Watched{Title: v.Title, URL: v.URL},
		})
	}
	return out, nil
}
