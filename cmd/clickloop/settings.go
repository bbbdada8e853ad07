package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"clickloop/internal/domain"
)

var (
	settingsMode      string
	settingsInterval  int
	settingsMaxTotal  int
	settingsUserAgent string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change cycle settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.links.Settings(cmd.Context())
		if err != nil {
			return err
		}
		return printSettings(s)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more settings",
	Long: `Change settings. Only the flags given are applied; the rest keep their
stored values. A running cycle picks the change up on its next tick.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.links.Settings(cmd.Context())
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("mode") {
			mode, err := domain.ParseCycleMode(settingsMode)
			if err != nil {
				return err
			}
			s.Mode = mode
		}
		if flags.Changed("interval") {
			s.GlobalInterval = settingsInterval
		}
		if flags.Changed("max-total") {
			s.MaxTotalIterations = settingsMaxTotal
		}
		if flags.Changed("user-agent") {
			s.UserAgent = settingsUserAgent
		}

		saved, err := a.links.SaveSettings(cmd.Context(), s)
		if err != nil {
			return err
		}
		return printSettings(saved)
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&settingsMode, "mode", "", "SEQUENTIAL, RANDOM or SINGLE")
	settingsSetCmd.Flags().IntVar(&settingsInterval, "interval", 0, "global interval in seconds, 0 uses each link's interval")
	settingsSetCmd.Flags().IntVar(&settingsMaxTotal, "max-total", 0, "stop after this many visits, 0 for unlimited")
	settingsSetCmd.Flags().StringVar(&settingsUserAgent, "user-agent", "", "user agent sent by the browser display")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}

type settingsView struct {
	Mode               string `yaml:"mode"`
	GlobalInterval     int    `yaml:"global_interval"`
	MaxTotalIterations int    `yaml:"max_total_iterations"`
	UserAgent          string `yaml:"user_agent,omitempty"`
}

func printSettings(s domain.Settings) error {
	out, err := yaml.Marshal(settingsView{
		Mode:               string(s.Mode),
		GlobalInterval:     s.GlobalInterval,
		MaxTotalIterations: s.MaxTotalIterations,
		UserAgent:          s.UserAgent,
	})
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
