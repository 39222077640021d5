package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/enroll"
)

var (
	enrollName       string
	enrollExternalID string
	enrollRole       string
	enrollSamples    int
	enrollFramesDir  string
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a new person",
	Long: `Capture face samples from the camera, retrain the classifier and
register the person. The record is only committed after training succeeds;
on cancellation or failure all partial samples are removed.`,
	RunE: runEnroll,
}

func init() {
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "display name (required)")
	enrollCmd.Flags().StringVar(&enrollExternalID, "external-id", "", "document or badge id")
	enrollCmd.Flags().StringVar(&enrollRole, "role", "", "role or job title")
	enrollCmd.Flags().IntVar(&enrollSamples, "samples", 0, "override target sample count")
	enrollCmd.Flags().StringVar(&enrollFramesDir, "frames-dir", "", "read frames from a directory instead of the camera")
	_ = enrollCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	locator, err := newLocator(cfg)
	if err != nil {
		return err
	}

	workflow := enroll.NewWorkflow(enroll.Config{
		Samples:     cfg.Enrollment.Samples,
		MinSamples:  cfg.Enrollment.MinSamples,
		FrameStride: cfg.Enrollment.FrameStride,
	}, newCameraGuard(cfg, enrollFramesDir), locator, p.samples, p.classifier, p.registry)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The capture loop runs on a worker so the progress display stays
	// responsive in the foreground.
	progress := make(chan enroll.Progress, 16)
	type outcome struct {
		result *enroll.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := workflow.Run(ctx, enroll.Request{
			Name:       enrollName,
			ExternalID: enrollExternalID,
			Role:       enrollRole,
			Samples:    enrollSamples,
		}, progress)
		close(progress)
		done <- outcome{result, err}
	}()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("enrolling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	for update := range progress {
		_ = bar.Set(update.Percent)
		bar.Describe(fmt.Sprintf("%s: %s", update.State, update.Message))
	}
	_ = bar.Finish()

	out := <-done
	if out.err != nil {
		return out.err
	}

	fmt.Printf("Enrolled %s as person %d (label %d, %d samples)\n",
		out.result.Person.Name, out.result.Person.ID, out.result.Label, out.result.Samples)
	return nil
}
