//go:build integration

package entstore

import (
	"context"
	"testing"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/TGBox/stat-tracker/pkg/store"
)

func startPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stats"),
		tcpostgres.WithUsername("stats"),
		tcpostgres.WithPassword("stats"),
		tcpostgres.WithSQLDriver("pgx"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	st, err := Open(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestPostgresEventFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	if _, err := st.Append(ctx, store.Record{Timestamp: "2024-06-02T08:00:00", SourceModule: "weather", EventType: "weather_forecast", Value: map[string]any{"k": "v"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Append(ctx, store.Record{Timestamp: "2024-06-01T08:00:00", SourceModule: "weather", EventType: "weather_fetch_failed"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}

	got, err := st.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
	if got[0].EventType != "weather_fetch_failed" || !got[0].Value.IsNull() {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[1].Value.Kind() != store.KindJSON {
		t.Fatalf("kind=%s want json", got[1].Value.Kind())
	}
}
