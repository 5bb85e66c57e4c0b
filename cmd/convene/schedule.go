package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"basegraph.app/convene/internal/app"
	"basegraph.app/convene/internal/model"
)

var (
	requestFile   string
	showProcessed bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule one meeting request",
	Long: `Read a meeting request (the /receive body) and print the output record.

Examples:
  convene schedule --file request.json
  convene schedule --file - --processed < request.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readRequest(cmd.InOrStdin(), requestFile)
		if err != nil {
			return err
		}

		container, err := app.NewContainer(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer container.Close()

		result := container.Services.Scheduling().Schedule(cmd.Context(), req)

		body := result.OutputBody()
		if showProcessed {
			body = result.ProcessedBody()
		}
		if err := printJSON(cmd.OutOrStdout(), body); err != nil {
			return err
		}
		return result.Err
	},
}

func init() {
	scheduleCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request JSON file, - for stdin")
	scheduleCmd.Flags().BoolVar(&showProcessed, "processed", false, "print the processed record instead of the output record")
	_ = scheduleCmd.MarkFlagRequired("file")
}

func readRequest(stdin io.Reader, path string) (model.ScheduleRequest, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("reading request: %w", err)
	}

	var req model.ScheduleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("decoding request %s: %w", path, err)
	}
	return req, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
