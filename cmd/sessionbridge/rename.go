package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sessionbridge/store"
)

var renameCmd = &cobra.Command{
	Use:   "rename SESSION_ID NAME",
	Short: "Rename a session locally",
	Long: `Rename a session in the local list. The new name reaches the
backend the next time the session is created there.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		c.Update(store.Session{ID: args[0], Name: args[1]})
		fmt.Printf("Renamed %s to %s\n", args[0], nameStyle.Render(args[1]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
