package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm SESSION_ID",
	Short: "Delete a session",
	Long: `Delete a session. The remote delete is best-effort: the session
leaves the local list even when the backend is unreachable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		id := args[0]
		for _, s := range c.SessionList() {
			if s.ID == id {
				c.Remove(s)
				fmt.Printf("Removed %s\n", id)
				return nil
			}
		}
		return fmt.Errorf("session %s not found", id)
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
