package server

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// maxArgLogLen is the maximum length for logged arguments before truncation.
const maxArgLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
// Wallet analyses call out to remote APIs, so the bar sits well above local work.
const slowRequestThreshold = 10 * time.Second

// LoggingMiddleware returns middleware that logs all requests with timing.
func LoggingMiddleware(logger zerolog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			var event *zerolog.Event
			switch {
			case err != nil:
				event = logger.Error().Err(err)
			case duration > slowRequestThreshold:
				event = logger.Warn()
			default:
				event = logger.Debug()
			}

			event = event.Str("method", method).Int64("duration_ms", duration.Milliseconds())
			if params := formatParams(req); params != "" {
				event = event.Str("params", truncate(params, maxArgLogLen))
			}

			switch {
			case err != nil:
				event.Msg("Request failed")
			case duration > slowRequestThreshold:
				event.Msg("Slow request")
			default:
				event.Msg("Request completed")
			}

			return result, err
		}
	}
}

// formatParams extracts and formats request parameters for logging.
func formatParams(req mcp.Request) string {
	if req == nil {
		return ""
	}
	params := req.GetParams()
	if params == nil {
		return ""
	}
	return fmt.Sprintf("%+v", params)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
