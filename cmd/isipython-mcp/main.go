// Command isipython-mcp exposes the execution core as MCP tools over
// stdio, for embedding in agentic tooling. Grounded on
// ormasoftchile-gert's cmd/gert-mcp/main.go.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/isipython-edu/isipython-core/internal/config"
	"github.com/isipython-edu/isipython-core/internal/grade"
	"github.com/isipython-edu/isipython-core/internal/logging"
	"github.com/isipython-edu/isipython-core/internal/mcpserver"
	"github.com/isipython-edu/isipython-core/internal/session"
	"github.com/isipython-edu/isipython-core/internal/store"
)

var version = "dev"

func main() {
	_ = config.LoadDotEnv("")
	cfg, err := config.Load(os.Getenv("ISIPYTHON_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(false)
	defer logger.Sync()

	sessions := session.NewSupervisor(session.Config{
		InterpreterCmd:     cfg.InterpreterCmd,
		TempDir:            cfg.TempDir,
		IdleBudget:         cfg.IdleBudget,
		OutputBufferLines:  cfg.BufferCapacity,
		InputCourtesySleep: cfg.CourtesySleep,
	})

	var testCases *store.TestCaseStore
	if cfg.TestCasesFile != "" {
		testCases, err = store.LoadTestCaseStore(cfg.TestCasesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading test cases: %v\n", err)
			os.Exit(1)
		}
	} else {
		testCases = store.NewEmptyTestCaseStore()
	}

	grader := grade.NewGrader(grade.Config{
		CaseTimeout:    cfg.GradeCaseTimeout,
		Concurrency:    cfg.GraderConcurrency,
		InterpreterCmd: cfg.InterpreterCmd,
		TempDir:        cfg.TempDir,
	}, testCases, store.NewMemorySubmissionStore(), store.NewMemoryProgressStore(), nil, logger)

	s := mcpserver.NewServer(version, sessions, grader)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
