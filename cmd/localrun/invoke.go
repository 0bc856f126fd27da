package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/drblury/lambdaflow"
)

func invokeCmd() *cobra.Command {
	var (
		endpoint string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "invoke [payload-file]",
		Short: "Send an event through the emulator",
		Long:  "Send an event payload (from a file, or stdin when omitted or '-') to a running emulator and print the function's reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(args)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: timeout}
			res, err := client.Post(endpoint+"/invoke", "application/json", bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("reach emulator at %s: %w", endpoint, err)
			}
			defer res.Body.Close()

			body, err := io.ReadAll(res.Body)
			if err != nil {
				return err
			}
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("emulator returned %s: %s", res.Status, bytes.TrimSpace(body))
			}

			var reply any
			if err := lambdaflow.Unmarshal(body, &reply); err != nil {
				return fmt.Errorf("parse emulator reply: %w", err)
			}
			pretty, err := lambdaflow.MarshalIndent(reply, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "http://127.0.0.1:9001", "Emulator base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "How long to wait for the function's reply")

	return cmd
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	payload, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", args[0], err)
	}
	return payload, nil
}
