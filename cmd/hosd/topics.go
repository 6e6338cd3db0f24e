package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hoslink/internal/platform/kafka/admin"
)

func topicsCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "Create the ELD, position and driver event topics if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			created, err := admin.EnsureTopics(ctx, cfg.Bus.Brokers, cfg.Bus.Partitions, cfg.Bus.ReplicationFactor,
				cfg.Bus.EldTopic, cfg.Bus.PositionTopic, cfg.Bus.DriverEventsTopic)
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "all topics already exist")
				return nil
			}
			for _, t := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", t)
			}
			return nil
		},
	}
}
