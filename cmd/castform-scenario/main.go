// Command castform-scenario walks a running castform server through the
// reference actor form session and reports each step.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/castform/internal/scenario"
	"github.com/okian/castform/pkg/logger"
)

var (
	baseURL    string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "castform-scenario",
	Short: "Run the actor form walkthrough against a castform server",
	Long: `castform-scenario opens a fresh session on a castform server and drives
it through the reference walkthrough: load the initial actor, start a new
record, try to submit it blank, fill it in, submit, replay the submit and
edit again. The command fails on the first step that does not behave.`,
	SilenceUsage: true,
	RunE:         runScenario,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:9080", "castform server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the step report as JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every step")
}

func main() {
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !verbose {
		_ = logger.SetLevelString("error")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("cookie jar: %w", err)
	}
	r, err := scenario.New(baseURL,
		scenario.WithHTTPClient(&http.Client{Jar: jar, Timeout: timeout}),
		scenario.WithLogger(logger.Named("scenario")),
	)
	if err != nil {
		return err
	}

	steps, runErr := r.Run(ctx)
	if err := report(cmd.OutOrStdout(), steps); err != nil {
		return err
	}
	return runErr
}

func report(w io.Writer, steps []scenario.Step) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(steps)
	}
	for _, s := range steps {
		mark := "ok  "
		if !s.Passed {
			mark = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "%s %-32s %v\n", mark, s.Name, s.Duration.Round(time.Microsecond)); err != nil {
			return err
		}
		if s.Detail != "" {
			if _, err := fmt.Fprintf(w, "     %s\n", s.Detail); err != nil {
				return err
			}
		}
	}
	return nil
}
