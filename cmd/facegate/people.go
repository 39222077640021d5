package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/registry"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage the identity registry",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered persons",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.close()

		persons, err := p.registry.List()
		if err != nil {
			return err
		}
		return printPersons(persons)
	},
}

var peopleFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Search persons by name, external id or role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.close()

		persons, err := p.registry.Find(args[0])
		if err != nil {
			return err
		}
		return printPersons(persons)
	},
}

var peopleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a person and their samples",
	Long: `Delete the identity record and the person's sample directory. The
classifier label stays in the label map so historical exports keep
resolving; run 'facegate train' afterwards to drop the samples from the
model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid person id %q", args[0])
		}

		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.close()

		if err := p.registry.Remove(id); err != nil {
			return err
		}
		fmt.Printf("Removed person %d\n", id)
		return nil
	},
}

func init() {
	peopleCmd.AddCommand(peopleListCmd, peopleFindCmd, peopleRemoveCmd)
	rootCmd.AddCommand(peopleCmd)
}

func printPersons(persons []registry.Person) error {
	if len(persons) == 0 {
		fmt.Println("No persons found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEXTERNAL ID\tROLE\tLAST ACCESS")
	for _, p := range persons {
		last := "-"
		if !p.LastAccess.IsZero() {
			last = p.LastAccess.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ExternalID, p.Role, last)
	}
	return w.Flush()
}
