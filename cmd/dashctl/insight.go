package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func insightCmd(opts *globalOpts) *cobra.Command {
	var (
		date  string
		force bool
	)
	cmd := &cobra.Command{
		Use:       "insight daily|monthly",
		Short:     "Show the AI daily or monthly insight",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"daily", "monthly"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log := opts.client()
			defer log.Sync()

			ctx := cmd.Context()
			var headline, summary string
			var bullets []string
			switch args[0] {
			case "daily":
				in, err := client.DailyInsight(ctx, opts.userID, date, force)
				if err != nil {
					return fmt.Errorf("daily insight: %w", err)
				}
				headline, summary, bullets = in.Headline, in.Summary, in.Bullets
			case "monthly":
				in, err := client.MonthlyInsight(ctx, opts.userID, date, force)
				if err != nil {
					return fmt.Errorf("monthly insight: %w", err)
				}
				headline, summary, bullets = in.Headline, in.Summary, in.Bullets
			default:
				return fmt.Errorf("unknown insight %q (want daily or monthly)", args[0])
			}
			printInsight(cmd, headline, summary, bullets)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD) or month (YYYY-MM); default current")
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate instead of using the cached insight")
	return cmd
}

func printInsight(cmd *cobra.Command, headline, summary string, bullets []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headline)
	if summary != "" {
		fmt.Fprintln(out, summary)
	}
	for _, b := range bullets {
		fmt.Fprintf(out, "  - %s\n", b)
	}
}
