package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osse101/FieldSync_Go/internal/localstore"
)

var newUser localstore.NewUser

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a user to the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := store.AddUser(commandContext(cmd), newUser)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]interface{}{"id": u.ID, "username": u.Username, "role": u.Role()})
		}
		fmt.Printf("Added user %s (%s)\n", u.Username, u.Role())
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&newUser.Username, "username", "", "username (required)")
	userAddCmd.Flags().StringVar(&newUser.Password, "password", "", "password (required)")
	userAddCmd.Flags().StringVar(&newUser.Email, "email", "", "email address")
	userAddCmd.Flags().StringVar(&newUser.Assigned, "assigned", "", "role: field or team-leader")
	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userAddCmd)
}
