package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sessionbridge/cards"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1)

	userTurnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantTurnStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("135"))

	toolTurnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

var showCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Show one session's conversation as cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		sess := c.Session(args[0])
		name := sess.Name
		if name == "" {
			name = sess.ID
		}
		fmt.Println(sessionHeaderStyle.Render(name))
		fmt.Printf("%s  %s/%s\n\n", idStyle.Render(sess.ID), sess.Channel, sess.UserID)

		if len(sess.Messages) == 0 {
			fmt.Println("No messages.")
			return nil
		}

		for _, card := range sess.Messages {
			printCard(card)
		}
		return nil
	},
}

func printCard(card cards.Card) {
	switch card.Type {
	case cards.TypeRequest:
		fmt.Println(userTurnStyle.Render("user"))
		for _, f := range card.Content {
			if f.Text != "" {
				fmt.Println(contentStyle.Render(f.Text))
			}
		}
	case cards.TypeResponse:
		for _, m := range card.Output {
			style := assistantTurnStyle
			if m.Role == cards.RoleTool {
				style = toolTurnStyle
			}
			fmt.Println(style.Render(m.Role))
			if text := m.Content.PlainText(); text != "" {
				fmt.Println(contentStyle.Render(text))
			}
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(showCmd)
}
