// Command isipython-server exposes the execution core over HTTP.
// Grounded on gongjunhao-mybot's cmd/mybot/main.go (linear
// config -> collaborators -> signal-context -> run wiring).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isipython-edu/isipython-core/internal/config"
	"github.com/isipython-edu/isipython-core/internal/core"
	"github.com/isipython-edu/isipython-core/internal/grade"
	"github.com/isipython-edu/isipython-core/internal/httpapi"
	"github.com/isipython-edu/isipython-core/internal/logging"
	"github.com/isipython-edu/isipython-core/internal/session"
	"github.com/isipython-edu/isipython-core/internal/store"
	"github.com/isipython-edu/isipython-core/internal/translate"
)

func main() {
	_ = config.LoadDotEnv("")
	cfg, err := config.Load(os.Getenv("ISIPYTHON_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dev := os.Getenv("ISIPYTHON_ENV") != "production"
	logger := logging.New(dev)
	defer logger.Sync()

	sessions := session.NewSupervisor(session.Config{
		InterpreterCmd:     cfg.InterpreterCmd,
		TempDir:            cfg.TempDir,
		IdleBudget:         cfg.IdleBudget,
		OutputBufferLines:  cfg.BufferCapacity,
		InputCourtesySleep: cfg.CourtesySleep,
	})

	testCases, submissions, progress, translator := buildStores(cfg, logger)

	grader := grade.NewGrader(grade.Config{
		CaseTimeout:    cfg.GradeCaseTimeout,
		Concurrency:    cfg.GraderConcurrency,
		InterpreterCmd: cfg.InterpreterCmd,
		TempDir:        cfg.TempDir,
	}, testCases, submissions, progress, translator, logger)

	if !dev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpapi.New(sessions, grader, logger).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.Int("port", cfg.HTTPPort))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// buildStores wires the test-case, submission, progress, and translator
// collaborators. Submission and progress tracking are in-memory; a real
// deployment swaps these for a persistent store without touching the
// grader or the HTTP layer.
func buildStores(cfg config.Config, logger *zap.Logger) (*store.TestCaseStore, *store.MemorySubmissionStore, *store.MemoryProgressStore, core.Translator) {
	var testCases *store.TestCaseStore
	if cfg.TestCasesFile != "" {
		loaded, err := store.LoadTestCaseStore(cfg.TestCasesFile)
		if err != nil {
			logger.Fatal("loading test cases", zap.String("file", cfg.TestCasesFile), zap.Error(err))
		}
		testCases = loaded
	} else {
		testCases = store.NewEmptyTestCaseStore()
	}

	// translator stays a nil core.Translator (not a nil *AnthropicTranslator
	// boxed in the interface) when no API key is configured, so the
	// grader's "translator != nil" check actually skips it.
	var translator core.Translator
	if cfg.AnthropicAPIKey != "" {
		translator = translate.NewAnthropicTranslator(translate.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		}, logger)
	}

	return testCases, store.NewMemorySubmissionStore(), store.NewMemoryProgressStore(), translator
}
