package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Publika/internal/domain"
)

// NewJobCmd создаёт группу команд для управления queue jobs.
func NewJobCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage queue jobs",
	}

	cmd.AddCommand(
		newJobListCmd(storeFn, outputFn),
		newJobShowCmd(storeFn, outputFn),
		newJobCancelCmd(storeFn, outputFn),
		newJobRequeueStuckCmd(storeFn, outputFn),
	)

	return cmd
}

func newJobListCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			jobs, err := store.Jobs.ListByStatus(cmd.Context(), domain.JobStatus(status), limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "ATTEMPT", "SCHEDULED_AT", "NEXT_RETRY", "ERROR_CODE"}
			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = []string{
					j.ID.String(),
					string(j.Status),
					fmt.Sprintf("%d/%d", j.AttemptNumber, j.MaxAttempts),
					fmtTime(&j.ScheduledAt),
					fmtTime(j.NextRetryAt),
					fmtString(string(j.ErrorCode)),
				}
			}

			out.Print(headers, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, retrying, completed, failed, canceled)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")

	return cmd
}

func newJobShowCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			job, err := store.Jobs.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			headers := []string{"FIELD", "VALUE"}
			rows := [][]string{
				{"ID", job.ID.String()},
				{"Post", job.PostID.String()},
				{"Target", job.PostTargetID.String()},
				{"Schedule", job.ScheduleID.String()},
				{"Status", string(job.Status)},
				{"Attempt", fmt.Sprintf("%d/%d", job.AttemptNumber, job.MaxAttempts)},
				{"Scheduled at", fmtTime(&job.ScheduledAt)},
				{"Next retry", fmtTime(job.NextRetryAt)},
				{"Started", fmtTime(job.StartedAt)},
				{"Finished", fmtTime(job.FinishedAt)},
				{"Duration", strconv.FormatInt(job.ExecutionDurationMs, 10) + "ms"},
				{"Error code", fmtString(string(job.ErrorCode))},
				{"Error", fmtString(job.ErrorMessage)},
			}

			out.Print(headers, rows, job)
			return nil
		},
	}
}

func newJobCancelCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a job that has not finished yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			if err := store.Jobs.Cancel(cmd.Context(), id, time.Now()); err != nil {
				return fmt.Errorf("cancel job %s: %w", id, err)
			}

			out.Success(fmt.Sprintf("Job %s canceled", id))
			return nil
		},
	}
}

// newJobRequeueStuckCmd возвращает в pending running jobs с истёкшей
// арендой. Обычно это делает reaper worker'а; команда нужна для
// ручного вмешательства, когда worker остановлен.
func newJobRequeueStuckCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue-stuck",
		Short: "Requeue running jobs whose lease has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			out := outputFn()

			ids, err := store.Jobs.ReapExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Requeued %d jobs", len(ids)))
			for _, id := range ids {
				out.Success("  " + id.String())
			}
			return nil
		},
	}
}
