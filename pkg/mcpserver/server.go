// Package mcpserver exposes the event log over the Model Context Protocol:
// list_events queries stored events and track runs every producer once.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TGBox/stat-tracker/pkg/orchestrator"
	"github.com/TGBox/stat-tracker/pkg/store"
)

// maxEvents caps list_events results when the caller asks for no limit.
const maxEvents = 1000

// Runner runs the producers once.
type Runner interface {
	Run(ctx context.Context) (orchestrator.Report, error)
}

// Server wraps an MCP server bound to one store.
type Server struct {
	srv    *mcp.Server
	st     store.EventStore
	runner Runner
}

// New registers the tools. runner may be nil, in which case track is not offered.
func New(st store.EventStore, runner Runner, version string) *Server {
	s := &Server{
		srv:    mcp.NewServer(&mcp.Implementation{Name: "stat-tracker", Version: version}, nil),
		st:     st,
		runner: runner,
	}
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "list_events",
		Description: "List stored events ascending by timestamp, optionally filtered by source module and event type.",
	}, s.listEvents)
	if runner != nil {
		mcp.AddTool(s.srv, &mcp.Tool{
			Name:        "track",
			Description: "Run every enabled tracker once and append what they report.",
		}, s.track)
	}
	return s
}

// Run serves on t until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.srv.Run(ctx, t)
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Connect starts a session on t without blocking; used by tests.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.srv.Connect(ctx, t, nil)
}

type ListEventsInput struct {
	SourceModule string `json:"source_module,omitempty" jsonschema:"only events from this module"`
	EventType    string `json:"event_type,omitempty" jsonschema:"only events of this type"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of events, at most 1000"`
}

type EventView struct {
	ID           int64  `json:"id"`
	Timestamp    string `json:"timestamp"`
	SourceModule string `json:"source_module"`
	EventType    string `json:"event_type"`
	Value        any    `json:"value"`
}

type ListEventsOutput struct {
	Events []EventView `json:"events"`
}

func (s *Server) listEvents(ctx context.Context, _ *mcp.CallToolRequest, in ListEventsInput) (*mcp.CallToolResult, ListEventsOutput, error) {
	limit := in.Limit
	if limit <= 0 || limit > maxEvents {
		limit = maxEvents
	}
	events, err := s.st.List(ctx, store.ListOptions{SourceModule: in.SourceModule, EventType: in.EventType, Limit: limit})
	if err != nil {
		return nil, ListEventsOutput{}, err
	}
	out := ListEventsOutput{Events: make([]EventView, 0, len(events))}
	for _, ev := range events {
		out.Events = append(out.Events, EventView{
			ID:           ev.ID,
			Timestamp:    ev.Timestamp,
			SourceModule: ev.SourceModule,
			EventType:    ev.EventType,
			Value:        ev.Value.Interface(),
		})
	}
	return nil, out, nil
}

type TrackInput struct{}

type ProducerResult struct {
	Producer string `json:"producer"`
	Written  int    `json:"written"`
	Failed   int    `json:"failed"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

type TrackOutput struct {
	RunID   string           `json:"run_id"`
	Written int              `json:"written"`
	Results []ProducerResult `json:"results"`
}

func (s *Server) track(ctx context.Context, _ *mcp.CallToolRequest, _ TrackInput) (*mcp.CallToolResult, TrackOutput, error) {
	rep, err := s.runner.Run(ctx)
	if err != nil {
		return nil, TrackOutput{}, err
	}
	out := TrackOutput{RunID: rep.RunID, Written: rep.Written(), Results: make([]ProducerResult, 0, len(rep.Results))}
	for _, r := range rep.Results {
		pr := ProducerResult{Producer: r.Producer, Written: r.Written, Failed: r.Failed, Rejected: r.Rejected}
		if r.Err != nil {
			pr.Error = r.Err.Error()
		}
		out.Results = append(out.Results, pr)
	}
	return nil, out, nil
}
