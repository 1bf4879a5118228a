package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/store/entstore"
)

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// memStore is an in-memory EventStore that can fail selected event types.
type memStore struct {
	mu     sync.Mutex
	events []store.Event
	failOn string
}

func (m *memStore) Init(context.Context) error { return nil }

func (m *memStore) Append(_ context.Context, r store.Record) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && r.EventType == m.failOn {
		return store.Event{}, errmodel.System("append_failed", "disk full", nil, nil)
	}
	ev, err := store.Normalize(r, testNow)
	if err != nil {
		return store.Event{}, err
	}
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return ev, nil
}

func (m *memStore) List(context.Context, store.ListOptions) ([]store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Event(nil), m.events...), nil
}

func records(name string, types ...string) producer.Producer {
	return producer.Func{ModuleName: name, Fn: func(context.Context) ([]store.Record, error) {
		out := make([]store.Record, 0, len(types))
		for _, t := range types {
			out = append(out, store.Record{EventType: t, Value: t})
		}
		return out, nil
	}}
}

func quietLogger() *log.Logger { return log.New(&bytes.Buffer{}, "", 0) }

func TestRunIsolatesFailingProducer(t *testing.T) {
	ctx := context.Background()
	st, err := entstore.Open(ctx, "sqlite:file:orchestrator-isolation?mode=memory&cache=shared&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}

	second := producer.Func{ModuleName: "second", Fn: func(context.Context) ([]store.Record, error) {
		return nil, errors.New("api unreachable")
	}}
	o := New(st, []producer.Producer{records("first", "a", "b"), second, records("third", "c")}, WithLogger(quietLogger()))
	rep, err := o.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.RunID == "" {
		t.Fatal("missing run id")
	}
	if rep.Written() != 3 {
		t.Fatalf("written=%d want 3", rep.Written())
	}
	if res, _ := rep.Result("second"); res.Err == nil {
		t.Fatal("second producer error not reported")
	}

	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, ev := range events {
		got = append(got, ev.SourceModule+"/"+ev.EventType)
	}
	want := []string{"first/a", "first/b", "third/c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	st := &memStore{}
	var logs bytes.Buffer
	panics := producer.Func{ModuleName: "panics", Fn: func(context.Context) ([]store.Record, error) {
		panic("nil map write")
	}}
	o := New(st, []producer.Producer{panics, records("after", "x")}, WithLogger(log.New(&logs, "", 0)))
	rep, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, _ := rep.Result("panics")
	if !errors.Is(res.Err, errmodel.System("producer_panic", "", nil, nil)) {
		t.Fatalf("expected producer_panic, got %v", res.Err)
	}
	if len(st.events) != 1 || st.events[0].SourceModule != "after" {
		t.Fatalf("later producer did not run: %+v", st.events)
	}
	if !strings.Contains(logs.String(), "producer panics failed") {
		t.Fatalf("panic not logged:\n%s", logs.String())
	}
}

func TestRunKeepsExplicitSourceModule(t *testing.T) {
	st := &memStore{}
	p := producer.Func{ModuleName: "youtube", Fn: func(context.Context) ([]store.Record, error) {
		return []store.Record{
			{SourceModule: "youtube_firefox_tracker", EventType: "youtube_video_watched"},
			{EventType: "browser_history_failed"},
		}, nil
	}}
	if _, err := New(st, []producer.Producer{p}).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st.events[0].SourceModule != "youtube_firefox_tracker" || st.events[1].SourceModule != "youtube" {
		t.Fatalf("unexpected sources: %q, %q", st.events[0].SourceModule, st.events[1].SourceModule)
	}
}

func TestRunCountsStoreFailuresPerRecord(t *testing.T) {
	st := &memStore{failOn: "bad"}
	rep, err := New(st, []producer.Producer{records("p", "good", "bad", "good")}, WithLogger(quietLogger())).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, _ := rep.Result("p")
	if res.Written != 2 || res.Failed != 1 {
		t.Fatalf("written=%d failed=%d want 2/1", res.Written, res.Failed)
	}
}

type describedProducer struct{ producer.Func }

func (describedProducer) Schemas() map[string][]byte {
	return map[string][]byte{
		"reading": []byte(`{"type":"object","properties":{"temperature":{"type":"number"}},"required":["temperature"]}`),
		"broken":  []byte(`{"type":`),
	}
}

func TestRunRejectsRecordsViolatingSchema(t *testing.T) {
	st := &memStore{}
	p := describedProducer{producer.Func{ModuleName: "sensor", Fn: func(context.Context) ([]store.Record, error) {
		return []store.Record{
			{EventType: "reading", Value: map[string]any{"temperature": 21.5}},
			{EventType: "reading", Value: map[string]any{"temperature": "warm"}},
			{EventType: "broken", Value: "anything"},
			{EventType: "undeclared", Value: 1},
		}, nil
	}}}
	var logs bytes.Buffer
	rep, err := New(st, []producer.Producer{p}, WithLogger(log.New(&logs, "", 0))).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, _ := rep.Result("sensor")
	if res.Written != 3 || res.Rejected != 1 {
		t.Fatalf("written=%d rejected=%d want 3/1", res.Written, res.Rejected)
	}
	if !strings.Contains(logs.String(), "schema for broken ignored") {
		t.Fatalf("broken schema not reported:\n%s", logs.String())
	}

	var diag []store.Event
	for _, ev := range st.events {
		if ev.EventType == EventRecordRejected {
			diag = append(diag, ev)
		}
	}
	if len(diag) != 1 {
		t.Fatalf("got %d %s events, want 1: %+v", len(diag), EventRecordRejected, st.events)
	}
	if diag[0].SourceModule != "sensor" {
		t.Fatalf("source_module=%q want sensor", diag[0].SourceModule)
	}
	got, ok := diag[0].Value.Interface().(map[string]any)
	if !ok {
		t.Fatalf("value is %T", diag[0].Value.Interface())
	}
	if got["event_type"] != "reading" {
		t.Fatalf("event_type=%v", got["event_type"])
	}
	if diff := cmp.Diff(map[string]any{"temperature": "warm"}, got["value"]); diff != "" {
		t.Fatalf("rejected value mismatch (-want +got):\n%s", diff)
	}
	errPayload, _ := got["error"].(map[string]any)
	if errPayload["category"] != string(errmodel.CategoryValidation) || errPayload["code"] != "invalid_value" {
		t.Fatalf("unexpected error payload: %v", got["error"])
	}
}

func TestRunCountsFailedRejectionAppend(t *testing.T) {
	st := &memStore{failOn: EventRecordRejected}
	p := describedProducer{producer.Func{ModuleName: "sensor", Fn: func(context.Context) ([]store.Record, error) {
		return []store.Record{{EventType: "reading", Value: map[string]any{}}}, nil
	}}}
	rep, err := New(st, []producer.Producer{p}, WithLogger(quietLogger())).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, _ := rep.Result("sensor")
	if res.Written != 0 || res.Rejected != 1 || res.Failed != 1 {
		t.Fatalf("written=%d rejected=%d failed=%d want 0/1/1", res.Written, res.Rejected, res.Failed)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	st := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := producer.Func{ModuleName: "cancels", Fn: func(context.Context) ([]store.Record, error) {
		cancel()
		return []store.Record{{EventType: "dropped"}}, nil
	}}
	rep, err := New(st, []producer.Producer{cancelling, records("never", "x")}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rep.Results) != 1 || len(st.events) != 0 {
		t.Fatalf("run continued after cancellation: results=%d events=%d", len(rep.Results), len(st.events))
	}
}

func TestRunExportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	st := &memStore{failOn: "bad"}
	failing := producer.Func{ModuleName: "failing", Fn: func(context.Context) ([]store.Record, error) {
		return nil, errors.New("boom")
	}}
	o := New(st, []producer.Producer{records("weather", "a", "b", "bad"), failing}, WithMetrics(m), WithLogger(quietLogger()))
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.written.WithLabelValues("weather")); got != 2 {
		t.Fatalf("written=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.failed.WithLabelValues("weather", reasonStore)); got != 1 {
		t.Fatalf("failed=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.producerErrors.WithLabelValues("failing")); got != 1 {
		t.Fatalf("producer errors=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.lastRun); got == 0 {
		t.Fatal("last run timestamp not set")
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRunEmitsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	o := New(&memStore{}, []producer.Producer{records("a", "x"), records("b", "y")})
	o.newID = func() string { return "run-1" }
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	want := []string{"Orchestrator.Produce", "Orchestrator.Produce", "Orchestrator.Run"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("spans mismatch (-want +got):\n%s", diff)
	}
}
