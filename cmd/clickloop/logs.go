package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"clickloop/internal/adapter/store"
	"clickloop/internal/domain"
)

var (
	logsLimit  int
	logsOutput string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect the activity log",
}

var logsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print log entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.links.Logs(cmd.Context())
		if err != nil {
			return err
		}
		if logsLimit > 0 && len(entries) > logsLimit {
			entries = entries[:logsLimit]
		}
		if len(entries) == 0 {
			fmt.Println("Log is empty.")
			return nil
		}
		for _, e := range entries {
			fmt.Println(formatLogEntry(e))
		}
		return nil
	},
}

var logsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full log as JSON",
	Long:  `Write the log as indented JSON to --output, or to a timestamped file in the current directory. Use "-" for stdout.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		var buf bytes.Buffer
		if err := store.ExportLogs(cmd.Context(), a.store, &buf); err != nil {
			return err
		}

		path := logsOutput
		if path == "" {
			path = store.ExportFileName(time.Now())
		}
		if path == "-" {
			_, err := io.Copy(os.Stdout, &buf)
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("Exported log to %s\n", path)
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every log entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.links.ClearLogs(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Log cleared.")
		return nil
	},
}

func init() {
	logsShowCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "show at most this many entries")
	logsExportCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "destination file, - for stdout")

	logsCmd.AddCommand(logsShowCmd, logsExportCmd, logsClearCmd)
}

var logTypeStyles = map[domain.LogEventType]lipgloss.Style{
	domain.LogError:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	domain.LogFinish: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
}

func formatLogEntry(e domain.LogEntry) string {
	typ := fmt.Sprintf("%-6s", e.EventType)
	if st, ok := logTypeStyles[e.EventType]; ok {
		typ = st.Render(typ)
	}
	return fmt.Sprintf("%s  %s  %s", e.Time().Format("2006-01-02 15:04:05"), typ, e.Message)
}
