package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"picking-dash/internal/analysis"
)

// Options configure the tool server.
type Options struct {
	Version string
	// Mermaid appends xychart-beta renderings of every chart to dashboard results.
	Mermaid bool
	// ExportDir receives export_filtered files written without an explicit path.
	ExportDir string
	// MaxFileBytes bounds files read by load_picking_file.
	MaxFileBytes int64
}

// Server exposes the picking pipeline as MCP tools.
type Server struct {
	svc  *analysis.Service
	opts Options
	mcp  *sdk.Server
}

// NewServer registers every tool around svc.
func NewServer(svc *analysis.Service, opts Options) *Server {
	s := &Server{svc: svc, opts: opts}
	s.mcp = sdk.NewServer(&sdk.Implementation{Name: "picking-dash", Version: opts.Version}, nil)
	s.registerTools()
	return s
}

// Run serves the protocol over t until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context, t sdk.Transport) error {
	log.Info().Str("version", s.opts.Version).Bool("mermaid", s.opts.Mermaid).Msg("MCP server starting")
	if err := s.mcp.Run(ctx, t); err != nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}

// Connect attaches a single session on t, for in-process clients and tests.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

// Envelope is the JSON body of every tool result.
type Envelope struct {
	Data     any      `json:"data"`
	Guidance []string `json:"guidance,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// WrapResponse renders an envelope as the first text block of a tool result. Extra blocks
// (Markdown tables, Mermaid charts) follow it.
func WrapResponse(data any, guidance, warnings []string, extra ...string) (*sdk.CallToolResult, error) {
	body, err := json.MarshalIndent(Envelope{Data: data, Guidance: guidance, Warnings: warnings}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	res := &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: string(body)}}}
	for _, text := range extra {
		if text != "" {
			res.Content = append(res.Content, &sdk.TextContent{Text: text})
		}
	}
	return res, nil
}
