// File: internal/mcp/server.go
//
// Package mcp exposes the agent over the Model Context Protocol so external
// MCP clients can capture scenes and run automation tasks directly. Device
// access is serialized with a mutex; the protocol permits concurrent tool
// calls but the device does not.
package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/session"
)

// SessionRunner runs one work item to completion.
type SessionRunner interface {
	Run(ctx context.Context, item session.WorkItem) schemas.Result
}

// Perceiver captures the current scene.
type Perceiver interface {
	Capture(ctx context.Context) (*schemas.Scene, error)
}

// Unlocker establishes the unlocked-device precondition.
type Unlocker interface {
	Ensure(ctx context.Context) schemas.UnlockState
}

// Server bridges MCP tool calls onto the agent's components.
type Server struct {
	perceiver Perceiver
	sessions  SessionRunner
	unlocker  Unlocker
	logger    *zap.Logger

	deviceMu sync.Mutex
	mcp      *mcpserver.MCPServer
}

// NewServer registers the tool set and returns a ready Server.
func NewServer(perceiver Perceiver, sessions SessionRunner, unlocker Unlocker, version string, logger *zap.Logger) *Server {
	s := &Server{
		perceiver: perceiver,
		sessions:  sessions,
		unlocker:  unlocker,
		logger:    logger.Named("mcp"),
	}

	s.mcp = mcpserver.NewMCPServer("droidpilot", version)
	s.registerTools()
	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

// ServeHTTP blocks serving the streamable HTTP transport on addr.
func (s *Server) ServeHTTP(addr string) error {
	return mcpserver.NewStreamableHTTPServer(s.mcp).Start(addr)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("capture_scene",
			mcp.WithDescription("Capture the device's current UI: focused package/activity and the visible element tree. Optionally includes the screenshot as base64 JPEG."),
			mcp.WithBoolean("include_screenshot", mcp.Description("Include the base64-encoded screenshot in the response")),
		),
		s.handleCaptureScene,
	)

	s.mcp.AddTool(
		mcp.NewTool("run_task",
			mcp.WithDescription("Run an automation task against the device and return the terminal result. Blocks until the task finishes, fails, or exhausts its step budget."),
			mcp.WithString("task", mcp.Required(), mcp.Description("Natural-language description of the goal")),
			mcp.WithString("package", mcp.Description("Target application package; defaults to the configured target")),
			mcp.WithString("payload_ref", mcp.Description("Reference to a payload the task should use")),
			mcp.WithString("caption", mcp.Description("Caption text available to the task")),
		),
		s.handleRunTask,
	)

	s.mcp.AddTool(
		mcp.NewTool("unlock_screen",
			mcp.WithDescription("Wake the device and clear the lockscreen if possible. Reports ALREADY_UNLOCKED, SUCCESS, FAILED, or NEED_USER_ACTION."),
		),
		s.handleUnlock,
	)
}

func (s *Server) handleCaptureScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	includeShot := boolParam(request.GetArguments(), "include_screenshot", false)

	s.deviceMu.Lock()
	scene, err := s.perceiver.Capture(ctx)
	s.deviceMu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("capture scene: %v", err)), nil
	}

	out := struct {
		Package    string            `yaml:"package"`
		Activity   string            `yaml:"activity,omitempty"`
		Elements   []schemas.Element `yaml:"elements"`
		Screenshot string            `yaml:"screenshot,omitempty"`
	}{
		Package:  scene.Package,
		Activity: scene.Activity,
		Elements: scene.Elements,
	}
	if includeShot {
		out.Screenshot = base64.StdEncoding.EncodeToString(scene.Screenshot)
	}

	b, err := yaml.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode scene: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleRunTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	task := stringParam(params, "task", "")
	if task == "" {
		return mcp.NewToolResultError("task is required"), nil
	}

	item := session.WorkItem{
		ID:         "mcp",
		Task:       task,
		Package:    stringParam(params, "package", ""),
		PayloadRef: stringParam(params, "payload_ref", ""),
		Caption:    stringParam(params, "caption", ""),
	}

	s.deviceMu.Lock()
	result := s.sessions.Run(ctx, item)
	s.deviceMu.Unlock()

	s.logger.Info("MCP task finished",
		zap.String("status", string(result.Status)),
		zap.Int("steps", result.Steps))

	b, err := yaml.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	if !result.Succeeded() {
		return mcp.NewToolResultError(string(b)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleUnlock(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.deviceMu.Lock()
	st := s.unlocker.Ensure(ctx)
	s.deviceMu.Unlock()

	b, err := yaml.Marshal(st)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode unlock state: %v", err)), nil
	}
	if !st.Unlocked() {
		return mcp.NewToolResultError(string(b)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
