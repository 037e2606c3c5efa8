package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

func newTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Browse the SAT topic taxonomy",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List domains, subdomains and skills with their slugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tax := taxonomy.Default()
			if ok, err := printJSON(cmd, tax.Domains); ok {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range tax.Domains {
				fmt.Fprintf(out, "%s [%s]\n", d.Name, taxonomy.Slugify(d.Name))
				for _, sd := range d.Subdomains {
					fmt.Fprintf(out, "  %s [%s]\n", sd.Name, taxonomy.Slugify(sd.Name))
					for _, sk := range sd.Skills {
						fmt.Fprintf(out, "    %2d  %s [%s]\n", sk.Number, sk.Name, taxonomy.Slugify(sk.Name))
					}
				}
			}
			fmt.Fprintf(out, "\n%d skills\n", tax.SkillCount())
			return nil
		},
	}

	resolve := &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Resolve a topic slug and show the skills it selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tax := taxonomy.Default()
			m, ok := tax.ResolveSlug(args[0])
			if !ok {
				return fmt.Errorf("no topic matches slug %q", args[0])
			}
			sel := tax.ExpandToSelection(m)
			if ok, err := printJSON(cmd, map[string]any{"match": m, "selection": sel.Map()}); ok {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %q in %s\n", m.Kind, m.Name, m.Domain)
			fmt.Fprintln(out, strings.Repeat("-", 40))
			for _, tr := range sel.Triples() {
				fmt.Fprintf(out, "%s / %s / %s\n", tr.Domain, tr.Subdomain, tr.Skill)
			}
			return nil
		},
	}

	cmd.AddCommand(list, resolve)
	return cmd
}
