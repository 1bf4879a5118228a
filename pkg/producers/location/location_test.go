package location

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/tracker"
)

func TestProduce(t *testing.T) {
	loc, err := FromVisits([]string{"Ulm", "Munich", "Berlin"})
	if err != nil {
		t.Fatal(err)
	}
	recs, err := New(loc).Produce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Current{Current: "Berlin", History: []string{"Ulm", "Munich", "Berlin"}}
	if len(recs) != 1 || recs[0].EventType != EventCurrent {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if diff := cmp.Diff(want, recs[0].Value); diff != "" {
		t.Fatalf("value (-want +got):\n%s", diff)
	}
}

func TestFromVisitsRejectsBlank(t *testing.T) {
	if _, err := FromVisits(nil); !errors.Is(err, tracker.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
	if _, err := FromVisits([]string{"Ulm", " "}); !errors.Is(err, tracker.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestFactoryFallsBackToPlace(t *testing.T) {
	p, err := Factory(config.Default())(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	recs, err := p.Produce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := recs[0].Value.(Current).Current; got != "Ulm" {
		t.Fatalf("current=%q want Ulm", got)
	}
}
