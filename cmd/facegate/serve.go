package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/export"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sync/export API",
	Long: `Expose the identity list, label map, trained model and sample archives
over HTTP so remote deployments can pull them. All endpoints are
read-only.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "override the configured port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	port := cfg.Server.Port
	if override, _ := cmd.Flags().GetInt("port"); override > 0 {
		port = override
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
	server := export.NewServer(addr, p.registry, p.samples, p.classifier)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Sync API listening on http://%s\n", addr)
	return server.Start()
}
