// Package mcp bridges the daemon's query surface to Model Context Protocol
// clients, so assistants can locate files through the same endpoints the
// desktop shell uses.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/fileelf/fileelf/pkg/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Config carries the bridge settings.
type Config struct {
	// Client talks to the running daemon.
	Client *client.Client
	// ReadWrite enables the star/unstar tools.
	ReadWrite bool
}

// HitPayload is the JSON object form of one result.
type HitPayload struct {
	Path  string `json:"path"`
	Known bool   `json:"known"`
}

// HitsResponse wraps a result list.
type HitsResponse struct {
	Count int          `json:"count"`
	Hits  []HitPayload `json:"hits"`
}

// RegisterAll registers the locator tools with the given server.
func RegisterAll(s *server.MCPServer, config Config) {
	searchTool := mcp.NewTool("search",
		mcp.WithDescription(`Look a file or directory name up in the locator index. Returns {count,hits:[{path,known}]}. Known is true when the index currently tracks the path.`),
		mcp.WithString("entry", mcp.Required(), mcp.Description("File or directory name to look up")),
		mcp.WithBoolean("fuzzy", mcp.Description("Accept near matches (one edit over the compared prefix)")),
	)
	s.AddTool(searchTool, SearchTool(config))

	hotSearchTool := mcp.NewTool("hot_search",
		mcp.WithDescription(`Scan the most-accessed directories on disk for a name. Finds entries the index has not picked up yet; known marks the ones it has.`),
		mcp.WithString("entry", mcp.Required(), mcp.Description("Name or pattern to look for")),
		mcp.WithBoolean("fuzzy", mcp.Description("Accept near matches")),
		mcp.WithBoolean("regex", mcp.Description("Treat entry as a regular expression over filenames")),
	)
	s.AddTool(hotSearchTool, HotSearchTool(config))

	regexSearchTool := mcp.NewTool("regex_search",
		mcp.WithDescription(`Match a regular expression against every tracked path. Returns {count,hits:[{path,known}]}.`),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Regular expression applied to full paths")),
	)
	s.AddTool(regexSearchTool, RegexSearchTool(config))

	if !config.ReadWrite {
		return
	}

	starTool := mcp.NewTool("star_path",
		mcp.WithDescription(`Pin a path into the locator index so it is tracked and persisted.`),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to pin")),
	)
	s.AddTool(starTool, StarTool(config))

	unstarTool := mcp.NewTool("unstar_path",
		mcp.WithDescription(`Remove a pinned path (and anything beneath it) from the locator index.`),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to remove")),
	)
	s.AddTool(unstarTool, UnstarTool(config))
}

// SearchTool handles the search tool call.
func SearchTool(config Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		entry, ok := args["entry"].(string)
		if !ok || entry == "" {
			return mcp.NewToolResultError("entry parameter is required"), nil
		}
		fuzzy, _ := args["fuzzy"].(bool)

		hits, err := config.Client.Search(entry, fuzzy)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return hitsResult(hits)
	}
}

// HotSearchTool handles the hot_search tool call.
func HotSearchTool(config Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		entry, ok := args["entry"].(string)
		if !ok || entry == "" {
			return mcp.NewToolResultError("entry parameter is required"), nil
		}
		fuzzy, _ := args["fuzzy"].(bool)
		regex, _ := args["regex"].(bool)

		hits, err := config.Client.HotSearch(entry, fuzzy, regex)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return hitsResult(hits)
	}
}

// RegexSearchTool handles the regex_search tool call.
func RegexSearchTool(config Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pattern, ok := request.GetArguments()["pattern"].(string)
		if !ok || pattern == "" {
			return mcp.NewToolResultError("pattern parameter is required"), nil
		}

		hits, err := config.Client.RegexSearch(pattern)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return hitsResult(hits)
	}
}

// StarTool handles the star_path tool call.
func StarTool(config Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, ok := request.GetArguments()["path"].(string)
		if !ok || path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		starred, err := config.Client.Star(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return boolResult(starred)
	}
}

// UnstarTool handles the unstar_path tool call.
func UnstarTool(config Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, ok := request.GetArguments()["path"].(string)
		if !ok || path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		removed, err := config.Client.Unstar(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return boolResult(removed)
	}
}

func hitsResult(hits []client.Hit) (*mcp.CallToolResult, error) {
	payload := HitsResponse{Count: len(hits), Hits: make([]HitPayload, 0, len(hits))}
	for _, h := range hits {
		payload.Hits = append(payload.Hits, HitPayload{Path: h.Path, Known: h.Known})
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func boolResult(ok bool) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(map[string]bool{"ok": ok})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
