package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"routinedash/internal/autoschedule"
	"routinedash/internal/querycache"
)

func planCmd(opts *globalOpts) *cobra.Command {
	var (
		specs      []string
		start, end string
		commit     bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Autoschedule selected tasks into a time window",
		Long: `Ask the scheduler to place tasks into free time.

Each --task is <task-id> or <task-id>:<minutes>; durations are clamped to 15..240
and default to 30. Without --start/--end the window is today 09:00 to tomorrow 18:00.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(specs)
			if err != nil {
				return err
			}
			window := autoschedule.DefaultWindow(time.Now())
			if start != "" || end != "" {
				if window, err = autoschedule.ParseWindow(start, end, time.Local); err != nil {
					return err
				}
			}

			client, log := opts.client()
			defer log.Sync()
			planner := autoschedule.NewPlanner(client, querycache.New(), log)

			ctx := cmd.Context()
			proposal, err := planner.Plan(ctx, opts.userID, sel, window)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, b := range proposal.Blocks {
				fmt.Fprintf(out, "%s  %s - %s\n", b.TaskID, b.StartTime.Local().Format("Mon 15:04"), b.EndTime.Local().Format("15:04"))
			}
			if len(proposal.Overflow) > 0 {
				fmt.Fprintf(out, "Did not fit: %s\n", strings.Join(proposal.Overflow, ", "))
			}
			if proposal.Message != "" {
				fmt.Fprintln(out, proposal.Message)
			}
			if !commit || !proposal.CanCommit {
				return nil
			}

			tasks, err := client.ListTasks(ctx, opts.userID, nil)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			resp, err := planner.Commit(ctx, opts.userID, proposal, tasks)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %d events\n", resp.Inserted)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&specs, "task", "t", nil, "Task to schedule, <id>[:<minutes>] (repeatable)")
	cmd.Flags().StringVar(&start, "start", "", "Window start (RFC 3339 or 2006-01-02T15:04)")
	cmd.Flags().StringVar(&end, "end", "", "Window end (RFC 3339 or 2006-01-02T15:04)")
	cmd.Flags().BoolVar(&commit, "commit", false, "Create calendar events for the proposed blocks")
	return cmd
}

func parseSelection(specs []string) (*autoschedule.Selection, error) {
	sel := autoschedule.NewSelection()
	for _, spec := range specs {
		id, minutes, hasMinutes := strings.Cut(spec, ":")
		if id == "" {
			return nil, fmt.Errorf("invalid --task %q", spec)
		}
		sel.Select(id)
		if !hasMinutes {
			continue
		}
		n, err := strconv.Atoi(minutes)
		if err != nil {
			return nil, fmt.Errorf("invalid duration in --task %q: %w", spec, err)
		}
		sel.SetDuration(id, n)
	}
	return sel, nil
}
