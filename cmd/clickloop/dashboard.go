package main

import (
	"errors"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"clickloop/internal/adapter/tui/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the terminal dashboard",
	Long: `Control the cycle from a full-screen terminal UI. The dashboard owns the
run: quitting it stops any active cycle. Logs go to logger.output when it
names a file and are discarded otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, appOptions{quietLogs: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.startAutostart(ctx); err != nil {
			return err
		}
		if srv := a.newGateway(); srv != nil {
			go func() {
				if err := srv.Start(ctx); err != nil {
					a.logger.Error("gateway server error", "error", err)
				}
			}()
		}

		deps := dashboard.DashboardDeps{
			Bus:         a.bus,
			Cycle:       a.cycle,
			Links:       a.links,
			DisplayName: a.display.Name(),
			Config:      a.readConfigYAML(),
		}
		if a.schedule != nil {
			deps.Schedule = a.schedule
		}

		model := dashboard.NewDashboardModel(deps)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		model.SetProgramSender(func(msg tea.Msg) { p.Send(msg) })

		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	},
}
