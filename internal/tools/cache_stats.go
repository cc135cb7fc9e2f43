package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/train-mcp/internal/cache"
	"github.com/leonardcser/train-mcp/internal/trains"
)

// CacheStatsHandler returns the MCP tool handler for the "cache-stats" tool.
func CacheStatsHandler(searcher *trains.Searcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		text := "In-process cache: " + formatStats(searcher.Cache().Stats())
		if shared := searcher.Shared(); shared != nil {
			st, err := shared.Stats()
			if err != nil {
				text += "\nShared cache: unavailable (" + err.Error() + ")"
			} else {
				text += "\nShared cache: " + formatStats(st)
			}
		}
		return mcp.NewToolResultText(text), nil
	}
}

func formatStats(st cache.Stats) string {
	return fmt.Sprintf("%d entries (%d valid, %d expired)", st.TotalEntries, st.ValidEntries, st.ExpiredEntries)
}
