package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/sat-prep/internal/roadmap"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

func newRoadmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Generate and decode study roadmaps",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Build a roadmap from subdomain proficiency ratings",
		Example: `  satctl roadmap generate --level Algebra=1 --level "Advanced Math=3" --stable
  satctl roadmap generate --level Geometry\ and\ Trigonometry=0 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, _ := cmd.Flags().GetStringArray("level")
			stable, _ := cmd.Flags().GetBool("stable")
			seed, _ := cmd.Flags().GetUint64("seed")

			proficiency, err := parseLevels(levels)
			if err != nil {
				return err
			}
			tax := taxonomy.Default()
			if err := roadmap.ValidateProficiency(tax, proficiency); err != nil {
				return err
			}

			mode := roadmap.TieBreakRandom
			if stable {
				mode = roadmap.TieBreakStable
			}
			encoded := roadmap.Encode(roadmap.Sequence(tax, proficiency, roadmap.NewTieBreaker(mode, seed)))
			rm := roadmap.FromRecord("", roadmap.Record{RoadmapString: encoded, Proficiency: proficiency}, tax)
			return printRoadmap(cmd, rm)
		},
	}
	generate.Flags().StringArray("level", nil, "Subdomain rating as Name=0..5 (repeatable)")
	generate.Flags().Bool("stable", false, "Keep taxonomy order among equal ratings")
	generate.Flags().Uint64("seed", 0, "Seed for shuffling equal ratings")

	decode := &cobra.Command{
		Use:   "decode <roadmap-string>",
		Short: "Decode a stored roadmap string into steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, _ := cmd.Flags().GetInt("current")
			rm := roadmap.FromRecord("", roadmap.Record{RoadmapString: args[0], CurrentLevel: current}, taxonomy.Default())
			return printRoadmap(cmd, rm)
		},
	}
	decode.Flags().Int("current", 0, "Number of completed steps")

	cmd.AddCommand(generate, decode)
	return cmd
}

// parseLevels reads Name=N pairs.
func parseLevels(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("level %q must look like Name=N", p)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("level %q: %w", p, err)
		}
		out[name] = n
	}
	return out, nil
}

func printRoadmap(cmd *cobra.Command, rm *roadmap.Roadmap) error {
	if ok, err := printJSON(cmd, rm); ok {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", rm.RoadmapString)
	for _, st := range rm.Steps {
		mark := " "
		if st.IsCompleted {
			mark = "x"
		}
		name := st.SkillName
		if st.Degraded {
			name = fmt.Sprintf("(unknown %q)", st.Token)
		}
		fmt.Fprintf(out, "[%s] %2d  %-28s  %-40s  %s\n", mark, st.StepNumber, st.Category, name, st.ProficiencyLabel)
	}
	fmt.Fprintf(out, "\n%d/%d steps, %d%%\n", rm.CurrentLevel, rm.Len(), rm.Percent())
	return nil
}
