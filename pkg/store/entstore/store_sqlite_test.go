package entstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/TGBox/stat-tracker/pkg/store"
)

func openSQLite(t *testing.T, name string, opts ...Option) *Store {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, "sqlite:file:"+name+"?mode=memory&cache=shared&_pragma=busy_timeout(5000)", opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestSQLiteAppendAndGetAll(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "append")

	e1, err := st.Append(ctx, store.Record{Timestamp: "2024-06-01T10:00:00", SourceModule: "test_module", EventType: "test_event", Value: "Hello World"})
	if err != nil {
		t.Fatal(err)
	}
	e2, err := st.Append(ctx, store.Record{Timestamp: "2024-06-01T11:00:00", SourceModule: "test_module", EventType: "another_test", Value: map[string]any{"key": "value", "number": 123}})
	if err != nil {
		t.Fatal(err)
	}
	if e2.ID <= e1.ID {
		t.Fatalf("ids not increasing: %d then %d", e1.ID, e2.ID)
	}

	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("len=%d want 2", len(events))
	}
	if events[0].Value.Interface() != "Hello World" {
		t.Fatalf("value=%v", events[0].Value.Interface())
	}
	want := map[string]any{"key": "value", "number": float64(123)}
	if diff := cmp.Diff(want, events[1].Value.Interface()); diff != "" {
		t.Fatalf("structured mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteDefaultsApplied(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 5, 6, 7, 8000, time.UTC)
	st := openSQLite(t, "defaults", WithClock(func() time.Time { return now }))

	ev, err := st.Append(ctx, store.Record{})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Timestamp != "2024-03-04T05:06:07.000008Z" {
		t.Fatalf("timestamp=%q", ev.Timestamp)
	}
	if ev.SourceModule != "unknown" || ev.EventType != "generic_event" {
		t.Fatalf("defaults not applied: %+v", ev)
	}
	if !ev.Value.IsNull() {
		t.Fatal("value should be null")
	}
}

func TestSQLiteNullVersusNullString(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "nulls")

	if _, err := st.Append(ctx, store.Record{Timestamp: "2024-01-01T00:00:01", Value: nil}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Append(ctx, store.Record{Timestamp: "2024-01-01T00:00:02", Value: "null"}); err != nil {
		t.Fatal(err)
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !events[0].Value.IsNull() {
		t.Fatalf("first value should be null, got %v", events[0].Value.Interface())
	}
	if events[1].Value.Kind() != store.KindString || events[1].Value.Interface() != "null" {
		t.Fatalf("second value should be the string \"null\", got %s %v", events[1].Value.Kind(), events[1].Value.Interface())
	}
}

func TestSQLiteScalarKindsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "scalars")

	in := []any{int64(7), 7.5, true, "7", []string{"Milk", "Bread"}}
	for i, v := range in {
		ts := store.FormatTimestamp(time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC))
		if _, err := st.Append(ctx, store.Record{Timestamp: ts, Value: v}); err != nil {
			t.Fatal(err)
		}
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]any, 0, len(events))
	for _, ev := range events {
		got = append(got, ev.Value.Interface())
	}
	want := []any{int64(7), 7.5, true, "7", []any{"Milk", "Bread"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteOrdersByTimestamp(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "ordering")

	for _, ts := range []string{"2024-06-03T08:00:00", "2024-06-01T08:00:00", "2024-06-02T08:00:00"} {
		if _, err := st.Append(ctx, store.Record{Timestamp: ts, EventType: "weather_forecast", Value: ts}); err != nil {
			t.Fatal(err)
		}
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, ev := range events {
		got = append(got, ev.Timestamp)
	}
	want := []string{"2024-06-01T08:00:00", "2024-06-02T08:00:00", "2024-06-03T08:00:00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if events[0].ID != 2 {
		t.Fatalf("id order should be independent of timestamp order, got first id %d", events[0].ID)
	}
}

func TestSQLiteListFilters(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "filters")

	records := []store.Record{
		{Timestamp: "2024-01-01T00:00:01", SourceModule: "weather", EventType: "weather_forecast"},
		{Timestamp: "2024-01-01T00:00:02", SourceModule: "pollen", EventType: "pollen_forecast_daily"},
		{Timestamp: "2024-01-01T00:00:03", SourceModule: "weather", EventType: "weather_daily_summary"},
		{Timestamp: "2024-01-01T00:00:04", SourceModule: "weather", EventType: "weather_forecast"},
	}
	for _, r := range records {
		if _, err := st.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	got, err := st.List(ctx, store.ListOptions{SourceModule: "weather", EventType: "weather_forecast"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
	limited, err := st.List(ctx, store.ListOptions{SourceModule: "weather", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Timestamp != "2024-01-01T00:00:01" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}
}

func TestSQLiteInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "idempotent")

	if _, err := st.Append(ctx, store.Record{EventType: "kept"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != "kept" {
		t.Fatalf("existing data lost: %+v", events)
	}
}

func TestSQLiteLegacyAndMalformedRows(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "legacy")

	rows := []struct {
		kind  any
		value any
	}{
		{nil, "null"},
		{nil, `{"items": ["Milk"]}`},
		{nil, "no_data_available"},
		{"json", `{"broken":`},
	}
	for i, r := range rows {
		_, err := st.DB().ExecContext(ctx,
			`INSERT INTO events (timestamp, source_module, event_type, value_kind, value) VALUES (?, ?, ?, ?, ?)`,
			store.FormatTimestamp(time.Date(2023, 1, 1, 0, 0, i, 0, time.UTC)), "legacy", "legacy_event", r.kind, r.value)
		if err != nil {
			t.Fatal(err)
		}
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]any, 0, len(events))
	for _, ev := range events {
		got = append(got, ev.Value.Interface())
	}
	want := []any{nil, map[string]any{"items": []any{"Milk"}}, "no_data_available", `{"broken":`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("legacy decode mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteProducerAndDefaultedTimestampsSortChronologically(t *testing.T) {
	ctx := context.Background()
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	st := openSQLite(t, "mixed_timestamps", WithClock(func() time.Time { return now }))

	forecastHour := time.Date(2026, 10, 19, 8, 0, 0, 0, berlin)
	if _, err := st.Append(ctx, store.Record{EventType: "weather_daily_summary"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Append(ctx, store.Record{Timestamp: store.FormatTimestamp(forecastHour), EventType: "weather_forecast"}); err != nil {
		t.Fatal(err)
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, ev := range events {
		got = append(got, ev.EventType+"@"+ev.Timestamp)
	}
	want := []string{
		"weather_forecast@2026-10-19T06:00:00.000000Z",
		"weather_daily_summary@2026-10-19T07:00:00.000000Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteNestedLargeIntegersRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t, "big_ints")

	const visit = int64(1760853600123456789)
	if _, err := st.Append(ctx, store.Record{Value: map[string]any{"visit_us": visit, "count": 2}}); err != nil {
		t.Fatal(err)
	}
	events, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"visit_us": visit, "count": float64(2)}
	if diff := cmp.Diff(want, events[0].Value.Interface()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
