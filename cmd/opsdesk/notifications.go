package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newNotificationsCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read and clear a user's notifications",
	}

	cmd.AddCommand(
		newNotificationsListCmd(getApp),
		newNotificationsReadCmd(getApp),
		newNotificationsPurgeCmd(getApp),
	)

	return cmd
}

func newNotificationsListCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's unread notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing user id: %w", err)
			}

			notifications, err := a.store.GetUnreadNotifications(cmd.Context(), userID)
			if err != nil {
				return err
			}
			for _, n := range notifications {
				fmt.Printf("%s  %-13s  %s  (%s)\n",
					n.CreatedAt.Format(time.RFC3339), n.Type, n.Content, n.ID)
			}
			return nil
		},
	}
}

func newNotificationsReadCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			return a.store.MarkNotificationRead(cmd.Context(), args[0])
		},
	}
}

func newNotificationsPurgeCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <user-id>",
		Short: "Delete all of a user's notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing user id: %w", err)
			}
			return a.store.PurgeNotifications(cmd.Context(), userID)
		},
	}
}
