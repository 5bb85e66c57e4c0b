package main

import (
	"github.com/spf13/cobra"

	"basegraph.app/convene/internal/app"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

var verifyAt string

var verifyCmd = &cobra.Command{
	Use:   "verify-tz",
	Short: "Check an instant against every participant's business hours",
	Example: `  convene verify-tz --at 2025-07-17T14:00:00+05:30
  convene verify-tz --at "2025-07-17 16:00"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := timewindow.Parse(verifyAt)
		if err != nil {
			return err
		}

		container, err := app.NewContainer(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer container.Close()

		result := container.Services.Timezones().Verify(cmd.Context(), model.MeetingInfo{
			DurationMinutes:   model.DefaultDurationMinutes,
			Urgency:           model.UrgencyMedium,
			PreferredDatetime: at,
			TimeStated:        true,
		})
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyAt, "at", "", "instant to check (RFC 3339; no offset means +05:30)")
	_ = verifyCmd.MarkFlagRequired("at")
}
