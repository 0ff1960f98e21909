package main

import (
	"github.com/spf13/cobra"

	"shipwright/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" {
				fprintf(cmd.OutOrStdout(), "Notifications disabled: set notifications.ntfy_topic\n")
				return nil
			}
			if err := notifications.NewService(cfg.Notifications).TestNotification(cmd.Context()); err != nil {
				return err
			}
			fprintf(cmd.OutOrStdout(), "Test notification sent\n")
			return nil
		},
	}
}
