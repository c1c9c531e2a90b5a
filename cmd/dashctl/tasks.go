package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"routinedash/internal/model"
	"routinedash/internal/progress"
	"routinedash/internal/taskstore"
)

func tasksCmd(opts *globalOpts) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks (all, complete or incomplete)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			partition, err := taskstore.ParsePartition(status)
			if err != nil {
				return err
			}
			client, log := opts.client()
			defer log.Sync()

			tasks, err := client.ListTasks(cmd.Context(), opts.userID, partition.Filter())
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			printTasks(cmd, tasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "all", "Partition: all, complete, incomplete")
	return cmd
}

func printTasks(cmd *cobra.Command, tasks []model.Task) {
	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks")
		return
	}
	for _, t := range tasks {
		mark := " "
		if t.IsCompleted {
			mark = "x"
		}
		due := ""
		if t.DueDate != nil {
			due = " due " + t.DueDate.Local().Format("2006-01-02")
		}
		fmt.Fprintf(out, "[%s] %-24s %-6s %s%s\n", mark, t.ID, t.Priority, t.Description, due)
	}
}

func toggleCmd(opts *globalOpts) *cobra.Command {
	var done bool
	cmd := &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Mark a task complete (--done) or incomplete (--done=false)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, log := opts.client()
			defer log.Sync()

			task, err := client.SetTaskCompleted(cmd.Context(), args[0], done)
			if err != nil {
				return fmt.Errorf("toggle %s: %w", args[0], err)
			}
			state := "incomplete"
			if task.IsCompleted {
				state = "complete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&done, "done", true, "Completion state to set")
	return cmd
}

func progressCmd(opts *globalOpts) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show task and habit completion for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			rng, err := progress.ParseRange(start, end, now)
			if err != nil {
				return err
			}
			client, log := opts.client()
			defer log.Sync()

			ctx := cmd.Context()
			tasks, err := client.ListTasks(ctx, opts.userID, nil)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			habits, err := client.ListHabits(ctx, opts.userID)
			if err != nil {
				return fmt.Errorf("list habits: %w", err)
			}
			logs, err := client.ListHabitLogs(ctx, opts.userID, "")
			if err != nil {
				return fmt.Errorf("list habit logs: %w", err)
			}

			s := progress.Summarize(tasks, habits, logs, &rng, now)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Range:  %s .. %s\n", rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
			fmt.Fprintln(out, strings.Repeat("=", 30))
			fmt.Fprintf(out, "Tasks:  %d/%d\n", s.TasksCompleted, s.TasksTotal)
			fmt.Fprintf(out, "Habits: %d/%d\n", s.HabitsCompleted, s.HabitsTotal)
			fmt.Fprintf(out, "Completion: %d%%\n", progress.Completion(s))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Range start (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&end, "end", "", "Range end (YYYY-MM-DD, default today)")
	return cmd
}
