package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"clickloop/internal/domain"
)

var runLinkID string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cycle until interrupted",
	Long: `Start cycling through enabled links and block until SIGINT/SIGTERM or
until the run stops on its own. With --link the run stays on one link.
The gateway and autostart schedule start too when enabled in config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveLoop(cmd.Context(), appOptions{}, true)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web viewer and RPC gateway",
	Long: `Serve the browser viewer, the WebSocket RPC endpoint and the REST status
API. The cycle is idle until a client starts it or autostart fires.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveLoop(cmd.Context(), appOptions{forceGateway: true}, false)
	},
}

func init() {
	runCmd.Flags().StringVar(&runLinkID, "link", "", "stay on a single link by id")
}

// serveLoop wires the app, optionally starts a run, and blocks until a signal
// arrives. A run that stops on its own ends the command only when startRun is set.
func serveLoop(parent context.Context, opts appOptions, startRun bool) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.startAutostart(ctx); err != nil {
		return err
	}

	gwErr := make(chan error, 1)
	if srv := a.newGateway(); srv != nil {
		go func() {
			if err := srv.Start(ctx); err != nil {
				gwErr <- err
			}
		}()
	}

	a.logger.Info("clickloop starting",
		"display", a.display.Name(),
		"store", a.cfg.Store.Backend,
		"gateway", a.gateway != nil,
		"autostart", a.schedule != nil,
		"suggest", a.cfg.Suggest.Enabled,
	)

	done := make(chan struct{})
	if startRun {
		stopped := make(chan struct{})
		var once sync.Once
		unsub := a.bus.Subscribe(domain.EventCycleStopped, func(context.Context, domain.Event) {
			once.Do(func() { close(stopped) })
		})
		defer unsub()

		if err := a.cycle.Start(ctx, runLinkID); err != nil {
			return err
		}
		fmt.Printf("Cycling on %s display. Press Ctrl+C to stop.\n", a.display.Name())

		// With a gateway or autostart the process outlives a single run.
		if a.gateway == nil && a.schedule == nil {
			go func() {
				select {
				case <-stopped:
					close(done)
				case <-ctx.Done():
				}
			}()
		}
	} else if a.gateway != nil {
		fmt.Printf("Serving on http://%s\n", a.cfg.Gateway.Addr)
	}

	select {
	case <-ctx.Done():
	case <-done:
		fmt.Println("Run finished.")
	case err := <-gwErr:
		return err
	}
	return nil
}
