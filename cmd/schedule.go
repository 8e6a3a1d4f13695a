package cmd

import (
	"fmt"

	"reelforge/internal/store"

	"github.com/spf13/cobra"
)

var schedulePreviewCount int

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect and reserve upload slots",
}

var schedulePreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the next free upload slots",
	RunE:  runSchedulePreview,
}

var scheduleReserveCmd = &cobra.Command{
	Use:   "reserve <item-id>",
	Short: "Reserve the next free slot for a completed item",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleReserve,
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel <item-id>",
	Short: "Release an item's reserved slot and withdraw its post",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleCancel,
}

var scheduleRetryCmd = &cobra.Command{
	Use:   "retry <item-id>",
	Short: "Re-run a failed upload, keeping its slot and recorded results",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRetry,
}

func init() {
	schedulePreviewCmd.Flags().IntVarP(&schedulePreviewCount, "count", "n", 10, "Number of slots to preview")
	scheduleCmd.AddCommand(schedulePreviewCmd)
	scheduleCmd.AddCommand(scheduleReserveCmd)
	scheduleCmd.AddCommand(scheduleCancelCmd)
	scheduleCmd.AddCommand(scheduleRetryCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedulePreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	slots, err := rt.scheduler.PreviewUpcomingSlots(ctx, schedulePreviewCount)
	if err != nil {
		return err
	}

	for i, slot := range slots {
		fmt.Printf("%2d. %s\n", i+1, slot.Format("Mon Jan 2 15:04 MST"))
	}
	return nil
}

func runScheduleReserve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	item, err := rt.store.GetContentItem(ctx, args[0])
	if err != nil {
		return err
	}
	if item.Status != store.StatusCompleted {
		return fmt.Errorf("item %s is %s, only completed items can be scheduled", item.ID, item.Status)
	}

	schedule, err := rt.scheduler.ScheduleNext(ctx, item.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Reserved slot %d on %s (publishes %s)\n",
		schedule.Slot,
		schedule.ScheduledDate.Format("2006-01-02"),
		schedule.ScheduledAt.Format("Mon Jan 2 15:04 MST"))
	return nil
}

func runScheduleCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	schedule, err := rt.store.GetScheduleForItem(ctx, args[0])
	if err != nil {
		return err
	}
	if schedule.Status == store.ScheduleStatusCompleted {
		return fmt.Errorf("schedule for %s already completed, nothing to cancel", args[0])
	}

	if rt.processor != nil {
		if err := rt.processor.Cancel(ctx, schedule); err != nil {
			return err
		}
	}

	if err := rt.store.DeleteSchedule(ctx, schedule.ID); err != nil {
		return err
	}

	fmt.Printf("Cancelled slot %d on %s for %s\n",
		schedule.Slot, schedule.ScheduledDate.Format("2006-01-02"), args[0])
	return nil
}

// runScheduleRetry re-drives a failed upload through its existing schedule
// row, so platforms with a recorded success URL are not posted again.
func runScheduleRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	schedule, err := rt.store.GetScheduleForItem(ctx, args[0])
	if err != nil {
		return err
	}
	if schedule.Status != store.ScheduleStatusFailed {
		return fmt.Errorf("schedule for %s is %s, only failed uploads can be retried", args[0], schedule.Status)
	}

	item, err := rt.store.GetContentItem(ctx, args[0])
	if err != nil {
		return err
	}

	if err := rt.store.UpdateSchedule(ctx, schedule.ID, map[string]any{
		"status":        store.ScheduleStatusScheduled,
		"error_message": "",
	}); err != nil {
		return err
	}
	schedule.Status = store.ScheduleStatusScheduled

	switch {
	case rt.processor != nil:
		err = rt.processor.Process(ctx, item, schedule)
	case rt.direct != nil:
		err = rt.direct.Retry(ctx, item, schedule)
	default:
		fmt.Println("No publishing path configured; schedule re-queued for the worker")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Upload retried for %s (slot %d on %s)\n",
		args[0], schedule.Slot, schedule.ScheduledDate.Format("2006-01-02"))
	return nil
}
