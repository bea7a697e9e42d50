package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// StoreFn лениво открывает подключение к БД для команды.
type StoreFn func(ctx context.Context) (*Store, error)

// NewScheduleCmd создаёт группу команд для управления schedules.
func NewScheduleCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage publish schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(storeFn, outputFn),
		newScheduleShowCmd(storeFn, outputFn),
		newSchedulePauseCmd(storeFn, outputFn, false),
		newSchedulePauseCmd(storeFn, outputFn, true),
	)

	return cmd
}

func newScheduleListCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	var workspace string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			workspaceID := uuid.Nil
			if workspace != "" {
				if workspaceID, err = uuid.Parse(workspace); err != nil {
					return fmt.Errorf("invalid workspace id %q: %w", workspace, err)
				}
			}

			schedules, err := store.Schedules.List(cmd.Context(), workspaceID, limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TYPE", "ACTIVE", "PRIORITY", "SCHEDULED_AT", "NEXT_RUN", "LAST_RUN"}
			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = []string{
					s.ID.String(),
					string(s.Type),
					strconv.FormatBool(s.Active),
					strconv.Itoa(s.Priority),
					fmtTime(s.ScheduledAt),
					fmtTime(s.NextRunAt),
					fmtTime(s.LastRunAt),
				}
			}

			out.Print(headers, rows, schedules)
			return nil
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Filter by workspace ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")

	return cmd
}

func newScheduleShowCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show SCHEDULE_ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule id %q: %w", args[0], err)
			}

			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			sched, err := store.Schedules.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			headers := []string{"FIELD", "VALUE"}
			rows := [][]string{
				{"ID", sched.ID.String()},
				{"Workspace", sched.WorkspaceID.String()},
				{"Type", string(sched.Type)},
				{"Active", strconv.FormatBool(sched.Active)},
				{"Priority", strconv.Itoa(sched.Priority)},
				{"Scheduled at", fmtTime(sched.ScheduledAt)},
				{"Recurrence", fmtString(sched.RecurrencePattern)},
				{"Queue", fmtString(sched.QueueName)},
				{"Last run", fmtTime(sched.LastRunAt)},
				{"Next run", fmtTime(sched.NextRunAt)},
				{"Created", fmtTime(&sched.CreatedAt)},
			}
			if sched.PostID != nil {
				rows = append(rows, []string{"Post", sched.PostID.String()})
			}

			out.Print(headers, rows, sched)
			return nil
		},
	}
}

// newSchedulePauseCmd создаёт команду pause либо resume.
func newSchedulePauseCmd(storeFn StoreFn, outputFn func() *Output, resume bool) *cobra.Command {
	use, short, verb := "pause", "Pause a schedule", "paused"
	if resume {
		use, short, verb = "resume", "Resume a paused schedule", "resumed"
	}

	return &cobra.Command{
		Use:   use + " SCHEDULE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule id %q: %w", args[0], err)
			}

			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			sched, err := store.Schedules.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			sched.Active = resume
			sched.UpdatedAt = time.Now()
			if err := store.Schedules.Update(cmd.Context(), sched); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule %s %s", id, verb))
			return nil
		},
	}
}
