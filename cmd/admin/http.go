package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var flagSlot string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the state of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return adminRequest(http.MethodGet, "/admin/v1/state", 5*time.Second)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Ask a running server to save now, optionally into a slot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := "/admin/v1/snapshot"
		if flagSlot != "" {
			path += "?slot=" + url.QueryEscape(flagSlot)
		}
		return adminRequest(http.MethodPost, path, 15*time.Second)
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&flagSlot, "slot", "", "Also copy the save into this slot")
}

func adminRequest(method, path string, timeout time.Duration) error {
	u := strings.TrimRight(strings.TrimSpace(flagURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
