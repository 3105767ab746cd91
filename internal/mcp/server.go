// Package mcp provides the stdio MCP server exposing the storage
// tree to external tool consumers.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/treevault/internal/buildinfo"
	"github.com/go-ports/treevault/internal/storage"
	"github.com/go-ports/treevault/internal/valuefmt"
)

const getDescription = `Read the value at a slash-separated storage path. Mappings are returned as a JSON object of their whole subtree. A leading "/" resolves from the storage root.`

const setDescription = `Write a value at a slash-separated storage path. All intermediate mappings must already exist. Assigning type "json" with an object value replaces the entire previous subtree at that path.`

const deleteDescription = `Delete the value or subtree at a slash-separated storage path.`

const keysDescription = `List the child keys of the mapping at a path (or of the root when no path is given).`

// NewServer creates and registers all storage tools on a new MCP
// server. Separate from Serve so tests can obtain a configured server
// without committing to the stdio transport.
func NewServer(root *storage.Node) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("treevault", buildinfo.Version)
	registerTools(s, root)
	return s
}

// Serve starts the stdio MCP server over root, blocking until stdin
// closes.
func Serve(_ context.Context, root *storage.Node) error {
	return mcpserver.ServeStdio(NewServer(root))
}

func registerTools(s *mcpserver.MCPServer, root *storage.Node) {
	s.AddTool(mcp.NewTool("storage_get",
		mcp.WithDescription(getDescription),
		mcp.WithString("path",
			mcp.Description("Slash-separated path, e.g. tools/nmap/timeout"),
			mcp.Required(),
		),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGet(root, req)
	})

	s.AddTool(mcp.NewTool("storage_set",
		mcp.WithDescription(setDescription),
		mcp.WithString("path",
			mcp.Description("Slash-separated path"),
			mcp.Required(),
		),
		mcp.WithString("value",
			mcp.Description("Value text, interpreted according to type"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("How to interpret value (default string)"),
			mcp.Enum(valuefmt.TypeString, valuefmt.TypeInt, valuefmt.TypeFloat,
				valuefmt.TypeBool, valuefmt.TypeBytes, valuefmt.TypeNull, valuefmt.TypeJSON),
		),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSet(root, req)
	})

	s.AddTool(mcp.NewTool("storage_delete",
		mcp.WithDescription(deleteDescription),
		mcp.WithString("path",
			mcp.Description("Slash-separated path"),
			mcp.Required(),
		),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDelete(root, req)
	})

	s.AddTool(mcp.NewTool("storage_keys",
		mcp.WithDescription(keysDescription),
		mcp.WithString("path",
			mcp.Description("Path of a mapping; omit for the root"),
		),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleKeys(root, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleGet(root *storage.Node, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	v, err := root.Get(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if node, ok := v.(*storage.Node); ok {
		doc, err := storage.Export(node)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"path": path, "mapping": valuefmt.Displayable(doc)})
	}
	return jsonResult(map[string]any{"path": path, "value": valuefmt.Displayable(v)})
}

func handleSet(root *storage.Node, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	value, err := valuefmt.Parse(req.GetString("value", ""), req.GetString("type", valuefmt.TypeString))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := root.Set(path, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"path": path, "stored": true})
}

func handleDelete(root *storage.Node, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if err := root.Delete(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"path": path, "deleted": true})
}

func handleKeys(root *storage.Node, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	node := root
	if path != "" {
		v, err := root.Get(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		child, ok := v.(*storage.Node)
		if !ok {
			return mcp.NewToolResultError("path addresses a value, not a mapping: " + path), nil
		}
		node = child
	}
	keys, err := node.Keys()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if keys == nil {
		keys = make([]string, 0)
	}
	return jsonResult(map[string]any{"path": path, "keys": keys, "length": len(keys)})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
