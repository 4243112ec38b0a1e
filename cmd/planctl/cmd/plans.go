package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"storepilot/internal/model"
)

var (
	planFile string
	wait     bool
	limit    int
	timeout  time.Duration
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show how many products a plan would touch",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := readPlan(cmd.InOrStdin(), planFile)
		if err != nil {
			return err
		}
		return call(cmd, http.MethodPost, storePath(storeID, "plans", "preview"), plan)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a plan to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := readPlan(cmd.InOrStdin(), planFile)
		if err != nil {
			return err
		}
		path := storePath(storeID, "plans")
		if wait {
			path += "?wait=true"
		}
		return call(cmd, http.MethodPost, path, plan)
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <history-id>",
	Short: "Undo a successful plan run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, http.MethodPost, storePath(storeID, "history", args[0], "revert"), nil)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the store's plan runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := storePath(storeID, "history")
		if limit > 0 {
			path += "?limit=" + strconv.Itoa(limit)
		}
		return call(cmd, http.MethodGet, path, nil)
	},
}

func init() {
	for _, c := range []*cobra.Command{previewCmd, applyCmd, revertCmd, historyCmd} {
		c.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
		rootCmd.AddCommand(c)
	}
	previewCmd.Flags().StringVarP(&planFile, "file", "f", "-", "plan JSON file (- for stdin)")
	applyCmd.Flags().StringVarP(&planFile, "file", "f", "-", "plan JSON file (- for stdin)")
	applyCmd.Flags().BoolVar(&wait, "wait", false, "run the plan inline and print its result")
	historyCmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (server default 20)")
}

// call sends one request and prints the response.
func call(cmd *cobra.Command, method, path string, body any) error {
	if storeID == "" {
		return fmt.Errorf("--store is required")
	}
	client := newAPIClient(serverURL, timeout)
	resp, err := client.do(cmd.Context(), method, path, body)
	if err != nil {
		return err
	}
	printJSON(cmd.OutOrStdout(), resp)
	return nil
}

// readPlan loads and validates a plan from path, or from stdin for "-".
func readPlan(stdin io.Reader, path string) (*model.Plan, error) {
	var data []byte
	var err error
	if path == "-" || path == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	var plan model.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}
