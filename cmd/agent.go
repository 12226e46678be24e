// File: cmd/agent.go
package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/actuator"
	"github.com/xkilldash9x/droidpilot/internal/adb"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/humanizer"
	"github.com/xkilldash9x/droidpilot/internal/oracle"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"github.com/xkilldash9x/droidpilot/internal/session"
	"github.com/xkilldash9x/droidpilot/internal/unlock"
)

// agent bundles the fully wired component graph for one device. Subcommands
// pick the pieces they need; building the graph is cheap and side-effect
// free until a method talks to the device.
type agent struct {
	device    *adb.Device
	perceiver *perception.Extractor
	unlocker  *unlock.Controller
	sessions  *session.Controller
}

// buildAgent is the composition root: concrete types are chosen here and
// nowhere else.
func buildAgent(cfg *config.Config, logger *zap.Logger) (*agent, error) {
	transport := adb.NewTransport(cfg.Device, logger)
	device := adb.NewDevice(transport, logger)
	hum := humanizer.New(cfg.Humanizer, nil)

	perceiver := perception.NewExtractor(device, cfg.Perception, logger)
	unlocker := unlock.NewController(device, device, hum, cfg.Unlock, logger)

	decider, err := oracle.New(cfg.Oracle, logger)
	if err != nil {
		return nil, fmt.Errorf("build oracle: %w", err)
	}

	exec := actuator.NewExecutor(device, hum, cfg.Session, logger)
	sessions := session.NewController(perceiver, decider, exec, unlocker, device, device, cfg.Session, logger)

	return &agent{
		device:    device,
		perceiver: perceiver,
		unlocker:  unlocker,
		sessions:  sessions,
	}, nil
}
