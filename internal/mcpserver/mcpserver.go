// Package mcpserver exposes the execution core as MCP tools over stdio, for
// embedding it in agentic tooling (§2.J). Grounded on
// ormasoftchile-gert's pkg/ecosystem/mcp package (server.NewMCPServer,
// mcp.NewTool/AddTool, textResult/errorResult helpers).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/isipython-edu/isipython-core/internal/grade"
	"github.com/isipython-edu/isipython-core/internal/session"
)

// toolServer holds the core collaborators the MCP tool handlers call into.
type toolServer struct {
	sessions *session.Supervisor
	grader   *grade.Grader
}

// NewServer builds an MCP server exposing run_program, supply_input,
// kill_session, and submit_challenge.
func NewServer(version string, sessions *session.Supervisor, grader *grade.Grader) *server.MCPServer {
	ts := &toolServer{sessions: sessions, grader: grader}

	s := server.NewMCPServer(
		"isipython",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("run_program",
			mcp.WithDescription("Transpile and run an isiXhosa source program, returning its status snapshot"),
			mcp.WithString("code", mcp.Required(), mcp.Description("The isiXhosa source code to run")),
			mcp.WithBoolean("debug", mcp.Description("Run with debug step instrumentation enabled")),
		),
		ts.handleRunProgram,
	)

	s.AddTool(
		mcp.NewTool("supply_input",
			mcp.WithDescription("Supply one line of input to a session waiting for it, or advance a debug step"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("The session ID returned by run_program")),
			mcp.WithString("line", mcp.Description("The input line to supply (empty to advance a debug step)")),
		),
		ts.handleSupplyInput,
	)

	s.AddTool(
		mcp.NewTool("kill_session",
			mcp.WithDescription("Force-terminate a running session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("The session ID to kill")),
		),
		ts.handleKillSession,
	)

	s.AddTool(
		mcp.NewTool("submit_challenge",
			mcp.WithDescription("Grade a submission against a challenge's test cases"),
			mcp.WithString("challenge_id", mcp.Required(), mcp.Description("The challenge to grade against")),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("The submitting user's ID")),
			mcp.WithString("code", mcp.Required(), mcp.Description("The submitted isiXhosa source code")),
		),
		ts.handleSubmitChallenge,
	)

	return s
}

func (ts *toolServer) handleRunProgram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["code"].(string)
	if code == "" {
		return errorResult("code argument is required"), nil
	}
	debug, _ := args["debug"].(bool)

	mode := session.ModeInteractive
	if debug {
		mode = session.ModeDebug
	}

	snap, err := ts.sessions.Start(ctx, code, mode)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(snap)
}

func (ts *toolServer) handleSupplyInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return errorResult("session_id argument is required"), nil
	}
	line, _ := args["line"].(string)

	snap, err := ts.sessions.SupplyInput(sessionID, line)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(snap)
}

func (ts *toolServer) handleKillSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return errorResult("session_id argument is required"), nil
	}
	if err := ts.sessions.Kill(sessionID); err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(fmt.Sprintf("session %s killed", sessionID)), nil
}

func (ts *toolServer) handleSubmitChallenge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	challengeID, _ := args["challenge_id"].(string)
	userID, _ := args["user_id"].(string)
	code, _ := args["code"].(string)
	if challengeID == "" || userID == "" || code == "" {
		return errorResult("challenge_id, user_id, and code arguments are all required"), nil
	}

	result, err := ts.grader.Grade(ctx, challengeID, userID, code)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(result)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(msg)},
		IsError: true,
	}
}
