// Package oracle is the decision boundary: the session hands it a perceived
// scene plus accumulated context and receives exactly one ActionDirective
// back. Two implementations exist, a remote decision service speaking JSON
// over HTTP and a direct Gemini binding.
package oracle

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Oracle decides the next action for a session step. Implementations must be
// safe for sequential reuse across steps; they are not required to be safe
// for concurrent sessions.
type Oracle interface {
	Decide(ctx context.Context, req schemas.DecisionRequest) (schemas.ActionDirective, error)
}

// New constructs the oracle selected by configuration.
func New(cfg config.OracleConfig, logger *zap.Logger) (Oracle, error) {
	switch cfg.Mode {
	case config.OracleModeService:
		return NewServiceClient(cfg, logger)
	case config.OracleModeGemini:
		return NewGeminiOracle(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown oracle mode %q", cfg.Mode)
	}
}

// Model responses frequently arrive fenced in markdown. The regex mirrors
// the service contract: one JSON object, optionally wrapped.
var fencedObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

// decodeDirective extracts and validates one ActionDirective from a raw
// response string, stripping markdown fencing and conversational padding.
func decodeDirective(raw string) (schemas.ActionDirective, error) {
	payload := strings.TrimSpace(raw)

	if strings.HasPrefix(payload, "```") {
		if m := fencedObjectRegex.FindStringSubmatch(payload); len(m) > 1 {
			payload = m[1]
		}
	} else if !strings.HasPrefix(payload, "{") {
		fb := strings.Index(payload, "{")
		lb := strings.LastIndex(payload, "}")
		if fb != -1 && lb > fb {
			payload = payload[fb : lb+1]
		}
	}

	var d schemas.ActionDirective
	if err := json.UnmarshalFromString(payload, &d); err != nil {
		return schemas.ActionDirective{}, fmt.Errorf("decode directive: %w (payload: %s)", err, truncate(payload, 300))
	}
	if d.Action == "" {
		return schemas.ActionDirective{}, fmt.Errorf("directive missing action field (payload: %s)", truncate(payload, 300))
	}
	return d, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
