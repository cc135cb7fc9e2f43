package main

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/train-mcp/internal/cache"
	"github.com/leonardcser/train-mcp/internal/config"
	"github.com/leonardcser/train-mcp/internal/logger"
	tools "github.com/leonardcser/train-mcp/internal/tools"
	"github.com/leonardcser/train-mcp/internal/trains"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting Train MCP server")

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		panic(err)
	}

	var shared cache.KV
	if cfg.SharedCache {
		shared = sharedCache(cfg.SocketPath)
	} else {
		logger.Infof("Shared cache disabled, using in-process cache only")
	}

	provider := trains.NewMockProvider(cfg.Latency, time.Now().UnixNano())
	searcher := trains.NewSearcher(provider, trains.SearcherOptions{
		TTL:         cfg.CacheTTL,
		FallbackTTL: cfg.FallbackTTL,
		Shared:      shared,
	})
	logger.Infof("Initialized train searcher (ttl=%s, fallback ttl=%s)", cfg.CacheTTL, cfg.FallbackTTL)

	s := server.NewMCPServer(
		"Train MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	logger.Infof("Created MCP server instance")

	orders := make([]string, len(trains.Orders))
	for i, o := range trains.Orders {
		orders[i] = string(o)
	}
	toolSearch := mcp.NewTool("train-search",
		mcp.WithDescription(multiline(
			"Searches train connections for a one-way or round trip and returns them as a numbered list",
			"\nFunctionality:",
			"- Takes a departure date and, for round trips, a return date",
			"- Returns duration, price, changes, times, train type and carrier per connection",
			"- Orders results by fastest, cheapest, least changes or best value",
			"- Optionally filters by price, duration and number of changes",
			"\nUsage notes:",
			"- Dates use the YYYY-MM-DD format",
			"- Weekend departures are more expensive",
			"- Results are cached for 5 minutes, so repeating a search is fast",
		)),
		mcp.WithString("departureDate", mcp.Required(), mcp.Description("Departure date (YYYY-MM-DD)")),
		mcp.WithString("tripType", mcp.Enum(string(trains.OneWay), string(trains.Roundtrip)), mcp.Description("Trip type, defaults to one-way")),
		mcp.WithString("returnDate", mcp.Description("Return date for round trips (YYYY-MM-DD)")),
		mcp.WithNumber("overnightStays", mcp.Description("Nights at the destination for round trips")),
		mcp.WithString("sort", mcp.Enum(orders...), mcp.Description("Result ordering, defaults to fastest")),
		mcp.WithNumber("maxPrice", mcp.Description("Maximum price in euros")),
		mcp.WithNumber("maxDuration", mcp.Description("Maximum duration in minutes")),
		mcp.WithNumber("maxChanges", mcp.Description("Maximum number of changes")),
		mcp.WithBoolean("directOnly", mcp.Description("Only show connections without changes")),
	)
	s.AddTool(toolSearch, tools.TrainSearchHandler(searcher))
	logger.Infof("Registered train-search tool")

	toolStats := mcp.NewTool("cache-stats",
		mcp.WithDescription("Reports how many cached search results are stored, and how many of them are still valid"),
	)
	s.AddTool(toolStats, tools.CacheStatsHandler(searcher))
	logger.Infof("Registered cache-stats tool")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// sharedCache connects to the cache daemon, starting it if needed. It returns
// nil when the daemon stays unreachable; searches then use the in-process cache only.
func sharedCache(sock string) cache.KV {
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	client, err := connectCache(sock)
	if err == nil {
		logger.Infof("Successfully connected to cache daemon")
		return client
	}
	logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
	if startErr := startCacheDaemon(); startErr != nil {
		logger.Errorf("Failed to start cache daemon: %v", startErr)
		return nil
	}
	logger.Infof("Cache daemon started successfully")
	// wait for socket to appear
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c, err := connectCache(sock); err == nil {
			logger.Infof("Successfully connected to cache daemon")
			return c
		}
		time.Sleep(200 * time.Millisecond)
	}
	logger.Warnf("Cache daemon unreachable after startup attempt, continuing without shared cache")
	return nil
}

func connectCache(sock string) (cache.KV, error) {
	// quick probe
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

func startCacheDaemon() error {
	// 1) Try cache binary next to this server executable (works with absolute invocation)
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), "train-mcp-cache")
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}

	// 2) Try PATH binary
	if path, err := exec.LookPath("train-mcp-cache"); err == nil {
		return spawn(path)
	}

	// 3) Try local binary in current working directory (best-effort)
	if _, err := os.Stat("./train-mcp-cache"); err == nil {
		return spawn("./train-mcp-cache")
	}

	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	return cmd.Start()
}
