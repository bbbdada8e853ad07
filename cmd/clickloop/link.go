package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"clickloop/internal/domain"
	"clickloop/internal/usecase/linkset"
)

var (
	linkTitle      string
	linkURL        string
	linkInterval   int
	linkIterations int
	suggestExample []string
	suggestAdd     bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Manage the links in the cycle",
}

var linkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List links in cycle order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		links, err := a.links.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(links) == 0 {
			fmt.Println("No links yet. Add one with: clickloop link add <url>")
			return nil
		}
		fmt.Println(renderLinks(links))
		return nil
	},
}

var linkAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Append a link to the cycle",
	Long:  `Append a link. Without --title the page title is looked up.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.links.Add(cmd.Context(), domain.Link{
			Title:       linkTitle,
			URL:         args[0],
			IntervalSec: linkInterval,
			Iterations:  linkIterations,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", link.ID, link.Title)
		return nil
	},
}

var linkEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch linkset.Patch
		flags := cmd.Flags()
		if flags.Changed("title") {
			patch.Title = &linkTitle
		}
		if flags.Changed("url") {
			patch.URL = &linkURL
		}
		if flags.Changed("interval") {
			patch.IntervalSec = &linkInterval
		}
		if flags.Changed("iterations") {
			patch.Iterations = &linkIterations
		}
		if patch == (linkset.Patch{}) {
			return fmt.Errorf("%w: nothing to change; pass --title, --url, --interval or --iterations", domain.ErrInvalidInput)
		}

		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.links.Update(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", link.ID)
		return nil
	},
}

var linkRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete a link",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.links.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var linkToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Enable or disable a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.links.Toggle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		state := "disabled"
		if link.Enabled {
			state = "enabled"
		}
		fmt.Printf("%s is now %s\n", link.ID, state)
		return nil
	},
}

var linkSuggestCmd = &cobra.Command{
	Use:   "suggest <topic>",
	Short: "Ask the language model for pages about a topic",
	Long: `Print suggested URLs for a topic. With --add the first suggestion is
appended to the cycle. Requires suggest.enabled in config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), manageOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		if suggestAdd {
			link, err := a.links.AddSuggested(cmd.Context(), args[0], suggestExample, linkInterval, linkIterations)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s: %s (%s)\n", link.ID, link.Title, link.URL)
			return nil
		}

		urls, err := a.links.Suggest(cmd.Context(), args[0], suggestExample)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Println(u)
		}
		return nil
	},
}

// manageOptions is used by commands that edit data without running the cycle.
var manageOptions = appOptions{quietLogs: true, noDisplay: true}

func init() {
	linkAddCmd.Flags().StringVar(&linkTitle, "title", "", "link title (default: looked up from the page)")
	linkAddCmd.Flags().IntVar(&linkInterval, "interval", 0, "seconds on screen (default: "+strconv.Itoa(domain.DefaultIntervalSec)+")")
	linkAddCmd.Flags().IntVar(&linkIterations, "iterations", 0, "visits per run, 0 for unlimited")

	linkEditCmd.Flags().StringVar(&linkTitle, "title", "", "new title")
	linkEditCmd.Flags().StringVar(&linkURL, "url", "", "new URL")
	linkEditCmd.Flags().IntVar(&linkInterval, "interval", 0, "new interval in seconds")
	linkEditCmd.Flags().IntVar(&linkIterations, "iterations", 0, "new visit cap, 0 for unlimited")

	linkSuggestCmd.Flags().StringSliceVar(&suggestExample, "example", nil, "example URL to steer suggestions (repeatable)")
	linkSuggestCmd.Flags().BoolVar(&suggestAdd, "add", false, "append the first suggestion to the cycle")
	linkSuggestCmd.Flags().IntVar(&linkInterval, "interval", 0, "interval for the added link")
	linkSuggestCmd.Flags().IntVar(&linkIterations, "iterations", 0, "visit cap for the added link")

	linkCmd.AddCommand(linkListCmd, linkAddCmd, linkEditCmd, linkRemoveCmd, linkToggleCmd, linkSuggestCmd)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// renderLinks formats links as a bordered table.
func renderLinks(links []domain.Link) string {
	rows := make([][]string, 0, len(links))
	for i, l := range links {
		enabled := "yes"
		if !l.Enabled {
			enabled = "no"
		}
		iterations := "∞"
		if l.Iterations > 0 {
			iterations = strconv.Itoa(l.Iterations)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			l.ID,
			l.Title,
			l.URL,
			strconv.Itoa(l.IntervalSec) + "s",
			iterations,
			enabled,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "TITLE", "URL", "INTERVAL", "ITER", "ON").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	if w := terminalWidth(); w > 0 {
		t = t.Width(w)
	}
	return t.Render()
}

// terminalWidth reads $COLUMNS; 0 leaves the table at its natural width.
func terminalWidth() int {
	n, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
