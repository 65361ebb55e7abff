// Command isipython is the interactive command-line front end for the
// execution core: it runs a source file to completion, steps through it
// under the debugger in a terminal UI, or grades it against a test-case
// fixture. Grounded on ormasoftchile-gert's cmd/gert/main.go (rootCmd +
// one var-block-and-RunE per subcommand, registered in init()).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/isipython-edu/isipython-core/internal/config"
	"github.com/isipython-edu/isipython-core/internal/debugtui"
	"github.com/isipython-edu/isipython-core/internal/grade"
	"github.com/isipython-edu/isipython-core/internal/session"
	"github.com/isipython-edu/isipython-core/internal/store"
)

var version = "dev"

func main() {
	_ = config.LoadDotEnv("")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "isipython",
	Short: "Run, debug, and grade isiXhosa source programs",
}

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Transpile and run a source file interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sv := session.NewSupervisor(session.Config{
		InterpreterCmd:     cfg.InterpreterCmd,
		TempDir:            cfg.TempDir,
		IdleBudget:         cfg.IdleBudget,
		OutputBufferLines:  cfg.BufferCapacity,
		InputCourtesySleep: cfg.CourtesySleep,
	})

	snap, err := sv.Start(ctx, string(source), session.ModeInteractive)
	if err != nil {
		return err
	}

	rl, err := readline.New("")
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	printed := 0
	for {
		if len(snap.Output) > printed {
			fmt.Print(snap.Output[printed:])
			printed = len(snap.Output)
		}
		if snap.Completed {
			if snap.Error != nil {
				return fmt.Errorf("%s", *snap.Error)
			}
			return nil
		}
		if snap.StillRunning {
			time.Sleep(50 * time.Millisecond)
			if snap, err = sv.Status(snap.SessionID); err != nil {
				return err
			}
			continue
		}
		if !snap.WaitingForInput {
			return fmt.Errorf("run: session %s stalled outside input or completion", snap.SessionID)
		}

		rl.SetPrompt(snap.Prompt)
		line, readErr := rl.Readline()
		if readErr != nil {
			_ = sv.Kill(snap.SessionID)
			return readErr
		}

		snap, err = sv.SupplyInput(snap.SessionID, line)
		if err != nil {
			return err
		}
	}
}

// --- debug ---

var debugCmd = &cobra.Command{
	Use:   "debug [file]",
	Short: "Step through a source file in the terminal debugger",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	sv := session.NewSupervisor(session.Config{
		InterpreterCmd:     cfg.InterpreterCmd,
		TempDir:            cfg.TempDir,
		IdleBudget:         cfg.IdleBudget,
		OutputBufferLines:  cfg.BufferCapacity,
		InputCourtesySleep: cfg.CourtesySleep,
	})

	return debugtui.Run(sv, string(source))
}

// --- grade ---

var gradeCmd = &cobra.Command{
	Use:   "grade [file] [cases.yaml]",
	Short: "Grade a source file against a test-case fixture",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrade,
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	cases, err := store.LoadTestCaseStore(args[1])
	if err != nil {
		return fmt.Errorf("load test cases: %w", err)
	}

	g := grade.NewGrader(grade.Config{
		CaseTimeout:    cfg.GradeCaseTimeout,
		Concurrency:    cfg.GraderConcurrency,
		InterpreterCmd: cfg.InterpreterCmd,
		TempDir:        cfg.TempDir,
	}, cases, store.NewMemorySubmissionStore(), store.NewMemoryProgressStore(), nil, nil)

	result, err := g.Grade(context.Background(), gradeChallengeID, gradeUserID, string(source))
	if err != nil {
		return fmt.Errorf("grade: %w", err)
	}

	fmt.Printf("status: %s (score %.1f, %d/%d cases)\n", result.Status, result.Score, result.TestsPassed, result.TestsTotal)
	for _, v := range result.VisibleTests {
		fmt.Printf("  [%s] expected %q, got %q\n", v.Status, v.ExpectedOutput, v.ActualOutput)
		if v.ErrorMessage != nil {
			fmt.Printf("    %s\n", *v.ErrorMessage)
		}
	}
	fmt.Printf("  hidden: %d/%d passed\n", result.HiddenTests.Passed, result.HiddenTests.Total)
	if result.ValidationError != nil {
		fmt.Println(strings.TrimSpace(*result.ValidationError))
	}
	return nil
}

var (
	cfgFile           string
	gradeChallengeID  string
	gradeUserID       string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	gradeCmd.Flags().StringVar(&gradeChallengeID, "challenge", "cli", "Challenge ID the test-case fixture is keyed under")
	gradeCmd.Flags().StringVar(&gradeUserID, "user", "cli-user", "User ID attributed to the submission")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(versionCmd)
}
