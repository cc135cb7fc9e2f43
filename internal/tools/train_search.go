package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/train-mcp/internal/trains"
)

// TrainSearchHandler returns the MCP tool handler for the "train-search" tool.
func TrainSearchHandler(searcher *trains.Searcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		date, err := req.RequireString("departureDate")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		order, err := trains.ParseOrder(req.GetString("sort", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		params := trains.SearchParams{
			TripType:      trains.TripType(req.GetString("tripType", string(trains.OneWay))),
			DepartureDate: date,
		}
		// One-way searches ignore return fields so they share a cache key.
		if params.TripType == trains.Roundtrip {
			params.ReturnDate = req.GetString("returnDate", "")
			params.OvernightStays = req.GetInt("overnightStays", 1)
		}
		filters := trains.Filters{
			MaxPrice:    req.GetInt("maxPrice", 0),
			MaxDuration: req.GetInt("maxDuration", 0),
			MaxChanges:  req.GetInt("maxChanges", 0),
			DirectOnly:  req.GetBool("directOnly", false),
		}

		if params.TripType != trains.Roundtrip {
			out, err := searcher.Search(ctx, params)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(formatLeg("Outbound", out, order, filters)), nil
		}

		res, err := searcher.Roundtrip(ctx, params)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var sb strings.Builder
		sb.WriteString(formatLeg("Outbound "+params.DepartureDate, res.Outbound, order, filters))
		sb.WriteString("\n\n")
		sb.WriteString(formatLeg("Return "+params.ReturnDate, res.Return, order, filters))
		sb.WriteString("\n\nRoundtrip summary")
		if res.FastestDuration != "" {
			sb.WriteString(fmt.Sprintf("\nCheapest combination: €%d", res.TotalPrice))
			sb.WriteString("\nFastest combination: " + res.FastestDuration)
		}
		sb.WriteString("\nOvernight stays: " + nights(res.OvernightStays))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatLeg filters, orders and renders one direction as a numbered list.
func formatLeg(title string, conns []trains.Connection, order trains.Order, filters trains.Filters) string {
	shown := trains.Sort(trains.Filter(conns, filters), order)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%d of %d connections, %s first)", title, len(shown), len(conns), order))
	if len(shown) == 0 {
		sb.WriteString("\nNo connections match the filters.")
		return sb.String()
	}
	for i, c := range shown {
		sb.WriteString(fmt.Sprintf("\n%d. %s -> %s  %s  €%d  %s  %s (%s)",
			i+1, c.Departure, c.Arrival, c.Duration, c.Price, changes(c.Changes), c.TrainType, c.Carrier))
	}
	return sb.String()
}

func nights(n int) string {
	if n == 1 {
		return "1 night"
	}
	return fmt.Sprintf("%d nights", n)
}

func changes(n int) string {
	switch n {
	case 0:
		return "direct"
	case 1:
		return "1 change"
	default:
		return fmt.Sprintf("%d changes", n)
	}
}
