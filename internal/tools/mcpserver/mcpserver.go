// Package mcpserver bridges external tool servers speaking the Model
// Context Protocol into internal/registry.Tool (C3). spec.md §1 treats
// the sub-process transport as an external collaborator with an
// interface only; the JSON-RPC client that speaks MCP over that
// transport is a legitimate domain component, grounded on
// faust93-microbot/internal/agent/tools/mcp_register.go's use of
// github.com/mark3labs/mcp-go.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/local/squidbot/pkg/models"
)

// StdioServer describes one external tool server launched as a
// sub-process speaking MCP over stdio.
type StdioServer struct {
	Name    string
	Command string
	Args    []string
}

// Connect starts srv's sub-process, performs the MCP initialize
// handshake, and returns one registry.Tool per tool the server exposes,
// each named "mcp.<server>.<tool>" so calls never collide with local
// tools or another server's tools of the same name.
func Connect(ctx context.Context, srv StdioServer, logger *slog.Logger) ([]*RemoteTool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcpserver", "server", srv.Name)

	tr := transport.NewStdio(srv.Command, nil, srv.Args...)
	cli := client.NewClient(tr)
	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp server %s: %w", srv.Name, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	initResult, err := cli.Initialize(initCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      mcp.Implementation{Name: "squidbot", Version: "1.0.0"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize mcp server %s: %w", srv.Name, err)
	}
	logger.Info("connected to mcp server", "server_name", initResult.ServerInfo.Name, "server_version", initResult.ServerInfo.Version)

	listed, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools for mcp server %s: %w", srv.Name, err)
	}

	tools := make([]*RemoteTool, 0, len(listed.Tools))
	for _, def := range listed.Tools {
		var params map[string]any
		if raw, err := json.Marshal(def.InputSchema); err == nil {
			_ = json.Unmarshal(raw, &params)
		}
		tools = append(tools, &RemoteTool{
			client:      cli,
			name:        fmt.Sprintf("mcp.%s.%s", srv.Name, def.Name),
			remoteName:  def.Name,
			description: def.Description,
			parameters:  params,
		})
	}
	return tools, nil
}

// RemoteTool proxies one call through an MCP client's CallTool RPC.
type RemoteTool struct {
	client      *client.Client
	name        string
	remoteName  string
	description string
	parameters  map[string]any
}

func (t *RemoteTool) Name() string              { return t.name }
func (t *RemoteTool) Description() string       { return t.description }
func (t *RemoteTool) Parameters() map[string]any { return t.parameters }

func (t *RemoteTool) Execute(ctx context.Context, args map[string]any) (models.ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	res, err := t.client.CallTool(ctx, req)
	if err != nil {
		return models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return models.ToolResult{Content: fmt.Sprintf("%v", res)}, nil
}
