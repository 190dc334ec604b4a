package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/vetting-cli/internal/rules"
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Inspect the risk criteria catalog",
}

// -- criteria list --

var criteriaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List criteria, optionally for one profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := initRegistry()
		if err != nil {
			return err
		}
		profile, _ := cmd.Flags().GetString("profile")
		return listCriteria(os.Stdout, reg, profile)
	},
}

// -- criteria show --

var criteriaShowCmd = &cobra.Command{
	Use:   "show <criterion-id>",
	Short: "Show a criterion's full metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := initRegistry()
		if err != nil {
			return err
		}
		c, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

func init() {
	criteriaListCmd.Flags().String("profile", "", "only list criteria of this profile (manufacturer, dealer, asset)")

	criteriaCmd.AddCommand(criteriaListCmd)
	criteriaCmd.AddCommand(criteriaShowCmd)
	rootCmd.AddCommand(criteriaCmd)
}

// listCriteria writes a table of criteria to out.
func listCriteria(out io.Writer, reg *rules.Registry, profile string) error {
	ids := reg.IDs()
	if profile != "" {
		var err error
		if ids, err = reg.CriteriaForProfile(profile); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tREQUIRED FIELDS")
	_, _ = fmt.Fprintln(w, "--\t----\t---------------")
	for _, id := range ids {
		c, err := reg.Get(string(id))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, strings.Join(c.RequiredFields, ", "))
	}
	if profile == "" {
		_, _ = fmt.Fprintf(w, "\nProfiles:\t%s\n", strings.Join(reg.Profiles(), ", "))
	}
	return w.Flush()
}
