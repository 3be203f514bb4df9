package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"task-tracker.com/task-tracker/internal/constants"
	model "task-tracker.com/task-tracker/internal/models"
	"task-tracker.com/task-tracker/internal/services"
)

var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := statusFlag(cmd)
		if err != nil {
			return err
		}

		return withService(cmd, func(ctx context.Context, service *services.TaskService) error {
			task, err := service.CreateTask(ctx, strings.Join(args, " "), status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task added (ID: %d).\n", task.ID)
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a task's description or status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var changes services.TaskChanges
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			changes.Description = &description
		}
		if cmd.Flags().Changed("status") {
			status, err := statusFlag(cmd)
			if err != nil {
				return err
			}
			changes.Status = &status
		}

		return withService(cmd, func(ctx context.Context, service *services.TaskService) error {
			if _, err := service.UpdateTask(ctx, id, changes); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task updated.")
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		return withService(cmd, func(ctx context.Context, service *services.TaskService) error {
			if err := service.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task deleted.")
			return nil
		})
	},
}

var markInProgressCmd = &cobra.Command{
	Use:   "mark-in-progress <id>",
	Short: "Mark a task as in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return markTask(cmd, args[0], "Task in progress.", (*services.TaskService).MarkInProgress)
	},
}

var markDoneCmd = &cobra.Command{
	Use:   "mark-done <id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return markTask(cmd, args[0], "Task done.", (*services.TaskService).MarkDone)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter constants.TaskStatus
		if cmd.Flags().Changed("status") {
			status, err := statusFlag(cmd)
			if err != nil {
				return err
			}
			filter = status
		}

		return withService(cmd, func(ctx context.Context, service *services.TaskService) error {
			tasks, err := service.ListTasks(ctx)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks, filter)
		})
	},
}

func markTask(
	cmd *cobra.Command,
	rawID string,
	message string,
	mark func(*services.TaskService, context.Context, int64) (*model.Task, error),
) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	return withService(cmd, func(ctx context.Context, service *services.TaskService) error {
		if _, err := mark(service, ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), message)
		return nil
	})
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, service *services.TaskService) error) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a.service)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func statusFlag(cmd *cobra.Command) (constants.TaskStatus, error) {
	if !cmd.Flags().Changed("status") {
		return constants.StatusTodo, nil
	}

	raw, _ := cmd.Flags().GetString("status")
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("--status must not be empty")
	}
	return constants.ParseTaskStatus(raw)
}

func printTasks(out io.Writer, tasks []model.Task, filter constants.TaskStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tDESCRIPTION\tUPDATED")

	shown := 0
	for _, task := range tasks {
		if filter != "" && task.Status != filter {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", task.ID, task.Status, task.Description, task.UpdatedAt.Local().Format(time.DateTime))
		shown++
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d task(s) listed.\n", shown)
	return nil
}

func init() {
	addCmd.Flags().StringP("status", "s", "", "initial status (TODO, IN_PROGRESS, DONE)")
	updateCmd.Flags().StringP("description", "d", "", "new description")
	updateCmd.Flags().StringP("status", "s", "", "new status (TODO, IN_PROGRESS, DONE)")
	listCmd.Flags().StringP("status", "s", "", "only list tasks with this status")

	rootCmd.AddCommand(addCmd, updateCmd, deleteCmd, markInProgressCmd, markDoneCmd, listCmd)
}
