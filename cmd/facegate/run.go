package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/authz"
	"github.com/facegate/facegate/pkg/classifier"
	"github.com/facegate/facegate/pkg/recognition"
)

var runFramesDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live recognition loop",
	Long: `Watch the camera and print an access decision for every face. The
displayed status is held for the configured cool-down window to avoid
flicker; the decision itself is recomputed on every frame.`,
	RunE: runRecognition,
}

func init() {
	runCmd.Flags().StringVar(&runFramesDir, "frames-dir", "", "read frames from a directory instead of the camera")
	rootCmd.AddCommand(runCmd)
}

func runRecognition(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	locator, err := newLocator(cfg)
	if err != nil {
		return err
	}

	allowlist, err := authz.LoadAllowlist(cfg.Storage.AllowlistPath)
	if err != nil {
		return err
	}

	engine := authz.NewEngine(
		cfg.Recognition.Threshold,
		allowlist,
		time.Duration(cfg.Recognition.HoldSeconds*float64(time.Second)),
	)

	session := recognition.NewSession(newCameraGuard(cfg, runFramesDir), locator, p.classifier, engine, p.registry)

	var last authz.Decision
	session.OnDecision = func(d authz.Decision) {
		shown := engine.Current()
		if shown.Status == last.Status && shown.PersonID == last.PersonID {
			return
		}
		last = shown
		switch shown.Status {
		case authz.StatusAuthorized:
			fmt.Printf("ACCESS GRANTED  %s (confidence %.1f)\n", shown.Name, shown.Confidence)
		case authz.StatusDenied:
			name := shown.Name
			if name == "" {
				name = "unknown"
			}
			fmt.Printf("ACCESS DENIED   %s (confidence %.1f)\n", name, shown.Confidence)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = session.Run(ctx)
	if errors.Is(err, classifier.ErrNotTrained) {
		return fmt.Errorf("no trained model: run 'facegate train' or enroll someone first")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
