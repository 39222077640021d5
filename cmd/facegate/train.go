package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/classifier"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the classifier from the sample corpus",
	Long: `Rebuild the face model from every sample on disk. Labels of already
enrolled persons are preserved; persons with samples but no label get a
fresh one.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	corpus, err := p.samples.LoadAll()
	if err != nil {
		return err
	}

	if err := p.classifier.Train(corpus); err != nil {
		if errors.Is(err, classifier.ErrInsufficientData) {
			return fmt.Errorf("nothing to train on: enroll someone first")
		}
		return err
	}

	total := 0
	for _, samples := range corpus {
		total += len(samples)
	}
	fmt.Printf("Trained on %d samples across %d persons\n", total, len(corpus))
	return nil
}
