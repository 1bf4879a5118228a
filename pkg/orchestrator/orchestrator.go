// Package orchestrator runs producers once and appends their records to the event log.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// EventRecordRejected is appended in place of a record whose value failed
// its schema. Its value is a Rejection.
const EventRecordRejected = "record_rejected"

// Rejection is the value of an EventRecordRejected event.
type Rejection struct {
	EventType string         `json:"event_type"`
	Value     any            `json:"value,omitempty"`
	Error     map[string]any `json:"error"`
}

// Result summarizes one producer within a run.
type Result struct {
	Producer string
	// Written counts appended records.
	Written int
	// Failed counts records the store did not accept.
	Failed int
	// Rejected counts records whose value did not match the producer's schema.
	// Each one is logged as an EventRecordRejected event instead.
	Rejected int
	// Err is the error returned (or panic raised) by Produce, if any.
	Err      error
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []Result
}

// Written returns the number of events appended across all producers.
func (r Report) Written() int {
	n := 0
	for _, res := range r.Results {
		n += res.Written
	}
	return n
}

// Result returns the result for the named producer.
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Producer == name {
			return res, true
		}
	}
	return Result{}, false
}

// Orchestrator invokes producers sequentially, each inside its own failure boundary.
type Orchestrator struct {
	st        store.EventStore
	producers []producer.Producer
	logger    *log.Logger
	metrics   *Metrics
	now       func() time.Time
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger for warnings and per-run summaries.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the clock used for report times.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an Orchestrator over st and the discovered producers.
func New(st store.EventStore, producers []producer.Producer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		st:        st,
		producers: producers,
		logger:    log.New(io.Discard, "", 0),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run invokes every producer once. A producer failure is logged and recorded
// in the report; it never stops the remaining producers. Run returns an error
// only when ctx is cancelled, together with the partial report.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: o.newID(), Started: o.now()}
	tr := otel.Tracer("orchestrator")
	ctx, span := tr.Start(ctx, "Orchestrator.Run", trace.WithAttributes(
		attribute.String("run.id", rep.RunID),
		attribute.Int("run.producers", len(o.producers)),
	))
	defer span.End()

	for _, p := range o.producers {
		if err := ctx.Err(); err != nil {
			rep.Finished = o.now()
			span.SetStatus(codes.Error, "cancelled")
			return rep, err
		}
		res := o.runOne(ctx, tr, rep.RunID, p)
		o.metrics.observe(res)
		rep.Results = append(rep.Results, res)
		if res.Err != nil {
			o.logger.Printf("run %s: producer %s failed: %v", rep.RunID, res.Producer, res.Err)
		}
		o.logger.Printf("run %s: producer %s wrote %d event(s), %d failed, %d rejected",
			rep.RunID, res.Producer, res.Written, res.Failed, res.Rejected)
	}
	rep.Finished = o.now()
	o.metrics.finish(rep)
	span.SetAttributes(attribute.Int("run.events_written", rep.Written()))
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return rep, err
	}
	return rep, nil
}

func (o *Orchestrator) runOne(ctx context.Context, tr trace.Tracer, runID string, p producer.Producer) Result {
	start := o.now()
	res := Result{Producer: p.Name()}
	ctx, span := tr.Start(ctx, "Orchestrator.Produce", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("producer.name", res.Producer),
	))
	defer span.End()

	schemas := o.schemas(p)
	records, err := safeProduce(ctx, p)
	if err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "produce failed")
	}
	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		if r.SourceModule == "" {
			r.SourceModule = res.Producer
		}
		if sch := schemas[r.EventType]; sch != nil {
			if verr := sch.Validate(r.Value); verr != nil {
				res.Rejected++
				o.logger.Printf("run %s: producer %s: rejected %s record: %v", runID, res.Producer, r.EventType, verr)
				if _, aerr := o.st.Append(ctx, rejected(r, verr)); aerr != nil {
					res.Failed++
					span.RecordError(aerr)
					o.logger.Printf("run %s: producer %s: append %s failed: %v", runID, res.Producer, EventRecordRejected, aerr)
				}
				continue
			}
		}
		if _, aerr := o.st.Append(ctx, r); aerr != nil {
			res.Failed++
			span.RecordError(aerr)
			o.logger.Printf("run %s: producer %s: append %s failed: %v", runID, res.Producer, r.EventType, aerr)
			continue
		}
		res.Written++
	}
	span.SetAttributes(
		attribute.Int("producer.written", res.Written),
		attribute.Int("producer.failed", res.Failed),
		attribute.Int("producer.rejected", res.Rejected),
	)
	res.Duration = o.now().Sub(start)
	return res
}

// schemas compiles the producer's declared value schemas. A schema that does
// not compile is logged and not enforced.
func (o *Orchestrator) schemas(p producer.Producer) map[string]*validate.Schema {
	d, ok := p.(producer.Describer)
	if !ok {
		return nil
	}
	out := make(map[string]*validate.Schema)
	for eventType, raw := range d.Schemas() {
		sch, err := validate.Compile(p.Name()+"."+eventType, raw)
		if err != nil {
			o.logger.Printf("warning: producer %s: schema for %s ignored: %v", p.Name(), eventType, err)
			continue
		}
		out[eventType] = sch
	}
	return out
}

// rejected builds the diagnostic record for r. The original value is kept
// when it can be stored.
func rejected(r store.Record, verr error) store.Record {
	rej := Rejection{EventType: r.EventType, Error: errmodel.Payload(verr)}
	if _, err := store.ValueOf(r.Value); err == nil {
		rej.Value = r.Value
	}
	return store.Record{
		Timestamp:    r.Timestamp,
		SourceModule: r.SourceModule,
		EventType:    EventRecordRejected,
		Value:        rej,
	}
}

func safeProduce(ctx context.Context, p producer.Producer) (records []store.Record, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errmodel.System("producer_panic", fmt.Sprint(rec), map[string]any{
				"producer": p.Name(),
				"stack":    string(debug.Stack()),
			}, nil)
			records = nil
		}
	}()
	return p.Produce(ctx)
}
