package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

func newTestNotifyCommand(ctx *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if message := notifyResultMessage(resp); message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), message)
				}
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing notification response")
				}
				return nil
			})
		},
	}
}

// notifyResultMessage picks the line printed after a test-notification
// round trip. Daemon-supplied messages win over the generic outcomes.
func notifyResultMessage(resp *ipc.TestNotificationResponse) string {
	if resp == nil {
		return ""
	}
	if message := strings.TrimSpace(resp.Message); message != "" {
		return message
	}
	if resp.Sent {
		return "Test notification sent"
	}
	return "Notification not sent"
}
