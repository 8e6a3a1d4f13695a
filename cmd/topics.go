package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage the topic rotation",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all topics",
	RunE:  runTopicsList,
}

var topicsAddCmd = &cobra.Command{
	Use:   "add <name> [description]",
	Short: "Add a topic to the rotation",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTopicsAdd,
}

var topicsActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Return a topic to the rotation",
	Args:  cobra.ExactArgs(1),
	RunE:  setTopicActive(true),
}

var topicsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Remove a topic from the rotation without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  setTopicActive(false),
}

var topicsUseNextCmd = &cobra.Command{
	Use:   "use-next <id>",
	Short: "Make a topic the next rotation pick",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicsUseNext,
}

func init() {
	topicsCmd.AddCommand(topicsListCmd)
	topicsCmd.AddCommand(topicsAddCmd)
	topicsCmd.AddCommand(topicsActivateCmd)
	topicsCmd.AddCommand(topicsDeactivateCmd)
	topicsCmd.AddCommand(topicsUseNextCmd)
	rootCmd.AddCommand(topicsCmd)
}

func runTopicsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	topics, err := rt.store.AllTopics(ctx)
	if err != nil {
		return err
	}

	for _, topic := range topics {
		state := "active"
		if !topic.IsActive {
			state = "inactive"
		}
		lastUsed := "never"
		if topic.LastUsedAt != nil {
			lastUsed = topic.LastUsedAt.Format("2006-01-02")
		}
		fmt.Printf("%4d  %-40s %-8s used %d, last %s\n",
			topic.ID, topic.Name, state, topic.UsageCount, lastUsed)
	}
	return nil
}

func runTopicsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	if err := rt.store.Migrate(ctx); err != nil {
		return err
	}

	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	topic, err := rt.store.AddTopic(ctx, args[0], description)
	if err != nil {
		return err
	}

	fmt.Printf("Added topic %d: %s\n", topic.ID, topic.Name)
	return nil
}

func setTopicActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := parseTopicID(args[0])
		if err != nil {
			return err
		}

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}

		if err := rt.store.SetTopicActive(ctx, id, active); err != nil {
			return err
		}

		state := "activated"
		if !active {
			state = "deactivated"
		}
		fmt.Printf("Topic %d %s\n", id, state)
		return nil
	}
}

func runTopicsUseNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseTopicID(args[0])
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}

	if err := rt.topics.UseNext(ctx, id); err != nil {
		return err
	}

	fmt.Printf("Topic %d will be the next pick\n", id)
	return nil
}

func parseTopicID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid topic id %q", arg)
	}
	return uint(id), nil
}
