package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/efreitasn/stocksim/internal/config"
	"github.com/spf13/cobra"
)

func newHealthcheckCommand(root *rootOptions) *cobra.Command {
	var url string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless a running server answers /healthz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := config.Load(root.configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				url = fmt.Sprintf("http://localhost:%d/healthz", cfg.Port)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: timeout}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("healthcheck: %w", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthcheck: status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "health endpoint to probe (default http://localhost:$PORT/healthz)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
