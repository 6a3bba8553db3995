package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sessionbridge/metadata"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	routeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	draftStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		sessions := c.SessionList()
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("Sessions (%d)", len(sessions))))
		now := time.Now()
		for _, s := range sessions {
			name := s.Name
			if name == "" {
				name = s.ID
			}
			line := fmt.Sprintf("%s  %s  %s  %s",
				nameStyle.Render(name),
				idStyle.Render(s.ID),
				routeStyle.Render(s.Channel+"/"+s.UserID),
				dateStyle.Render(metadata.ForSession(s).WithFallback(now).Updated.Format("2006-01-02 15:04")),
			)
			if s.Unsaved {
				line += "  " + draftStyle.Render("(draft)")
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
