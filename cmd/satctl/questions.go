package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Work with question banks",
	}

	filter := &cobra.Command{
		Use:   "filter",
		Short: "Filter a question bank by topic slug or explicit selection",
		Example: `  satctl questions filter --bank ./questions --slug linear-functions
  satctl questions filter --bank ./questions --select "Math/Algebra/Linear functions"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("bank")
			slug, _ := cmd.Flags().GetString("slug")
			selects, _ := cmd.Flags().GetStringArray("select")
			if slug != "" && len(selects) > 0 {
				return fmt.Errorf("use --slug or --select, not both")
			}

			bank, err := practice.LoadBank(dir)
			if err != nil {
				return err
			}
			tax := taxonomy.Default()

			var sel taxonomy.Selection
			switch {
			case slug != "":
				m, ok := tax.ResolveSlug(slug)
				if !ok {
					return fmt.Errorf("no topic matches slug %q", slug)
				}
				sel = tax.ExpandToSelection(m)
			case len(selects) > 0:
				sel, err = parseSelection(selects)
				if err != nil {
					return err
				}
			}

			qs := practice.NewMatcher(tax).Filter(bank.All(), sel)
			if ok, err := printJSON(cmd, qs); ok {
				return err
			}

			out := cmd.OutOrStdout()
			for _, q := range qs {
				fmt.Fprintf(out, "%-10s  %-32s  %s\n", q.ID, q.Domain, q.Skill)
			}
			fmt.Fprintf(out, "\n%d of %d questions\n", len(qs), bank.Len())
			return nil
		},
	}
	filter.Flags().String("bank", "./questions", "Question bank directory")
	filter.Flags().String("slug", "", "Topic slug")
	filter.Flags().StringArray("select", nil, "Domain/Subdomain/Skill triple (repeatable)")

	cmd.AddCommand(filter)
	return cmd
}

func parseSelection(triples []string) (taxonomy.Selection, error) {
	sel := taxonomy.NewSelection()
	for _, raw := range triples {
		parts := strings.Split(raw, "/")
		if len(parts) != 3 {
			return taxonomy.Selection{}, fmt.Errorf("selection %q must look like Domain/Subdomain/Skill", raw)
		}
		sel.Add(taxonomy.Triple{
			Domain:    strings.TrimSpace(parts[0]),
			Subdomain: strings.TrimSpace(parts[1]),
			Skill:     strings.TrimSpace(parts[2]),
		})
	}
	return sel, nil
}
