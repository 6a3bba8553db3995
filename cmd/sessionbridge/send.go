package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send SESSION_ID TEXT",
	Short: "Send a chat turn to a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		// Resolving the session registers its routing triple; the send path
		// reads it back to address the turn.
		c.Session(args[0])
		sessionID, userID, channel := c.Routing().Current()
		log.Debug("sending", "session", sessionID, "user", userID, "channel", channel)

		if err := c.Send(args[1]); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		fmt.Printf("Sent to %s (%s/%s)\n", sessionID, channel, userID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
