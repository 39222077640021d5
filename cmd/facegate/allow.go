package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/authz"
)

var allowCmd = &cobra.Command{
	Use:   "allow",
	Short: "Manage the allow-list",
	Long: `The allow-list restricts which enrolled identities may pass. It is an
overlay on top of enrollment: with no allow-list configured, every
recognized person is authorized.`,
}

var allowSetCmd = &cobra.Command{
	Use:   "set <name>...",
	Short: "Replace the allow-list with the given names or ids",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list := authz.NewAllowlist(args...)
		if err := list.Save(cfg.Storage.AllowlistPath); err != nil {
			return err
		}
		fmt.Printf("Allow-list set: %v\n", list.Entries())
		return nil
	},
}

var allowListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the allow-list",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := authz.LoadAllowlist(cfg.Storage.AllowlistPath)
		if err != nil {
			return err
		}
		if !list.Configured() {
			fmt.Println("No allow-list configured (all enrolled persons pass)")
			return nil
		}
		for _, e := range list.Entries() {
			fmt.Println(e)
		}
		return nil
	},
}

func init() {
	allowCmd.AddCommand(allowSetCmd, allowListCmd)
	rootCmd.AddCommand(allowCmd)
}
