package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"sessionbridge/store"
)

var (
	newName    string
	newChannel string
	newUser    string
	newSave    bool
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session",
	Long: `Create a session. By default the session is a local draft that the
backend has never seen; it is promoted on first use. With --save the
session is created on the backend immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		draft := store.Session{
			Name:    newName,
			Channel: newChannel,
			UserID:  newUser,
		}

		if newSave {
			list, err := c.Create(draft)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			fmt.Printf("Created %s\n", nameStyle.Render(list[0].ID))
			return nil
		}

		list := c.CreateLocal(draft)
		log.Debug("created local draft", "id", list[0].ID)
		fmt.Printf("Created draft %s\n", nameStyle.Render(list[0].ID))
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newName, "name", "", "Session name")
	newCmd.Flags().StringVar(&newChannel, "channel", "", "Channel (default console)")
	newCmd.Flags().StringVar(&newUser, "user", "", "User id (default default)")
	newCmd.Flags().BoolVar(&newSave, "save", false, "Create on the backend instead of a local draft")
	rootCmd.AddCommand(newCmd)
}
