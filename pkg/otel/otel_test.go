package otel

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitExportsToWriter(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	shutdown, err := Init(ctx, Config{ServiceVersion: "test", Stdout: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("stat-tracker/test").Start(ctx, "Orchestrator.Run")
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"Name": "Orchestrator.Run"`) {
		t.Fatalf("span not exported:\n%s", out)
	}
	if !strings.Contains(out, "stat-tracker") {
		t.Fatalf("service name missing from resource:\n%s", out)
	}
}

func TestInitExportsOverOTLP(t *testing.T) {
	ctx := context.Background()
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case got <- r.URL.Path:
		default:
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	shutdown, err := Init(ctx, Config{OTLPEndpoint: srv.URL + "/v1/traces"})
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("stat-tracker/test").Start(ctx, "Orchestrator.Produce")
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case path := <-got:
		if path != "/v1/traces" {
			t.Fatalf("path=%q", path)
		}
	default:
		t.Fatal("no spans exported")
	}
}
