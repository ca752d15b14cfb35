package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const passwordEnv = "SILO_WIFI_PASSWORD"

// newProvisionCommand submits credentials to a device portal from the
// operator's machine, as an alternative to filling in the form by hand.
func newProvisionCommand() *cobra.Command {
	var (
		portal   string
		ssid     string
		deviceID string
		apiKey   string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Send network credentials to a device in setup mode",
		Example: `  # Join the device's setup network first, then:
  SILO_WIFI_PASSWORD='hunter22' silo-device-agent provision --ssid "My Home" --device-id kitchen-01`,
		// Runs on the operator machine; no device configuration needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogger(LOG_LEVEL_INFO)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv(passwordEnv)
			if ssid == "" {
				return fmt.Errorf("--ssid is required")
			}
			if deviceID == "" {
				return fmt.Errorf("--device-id is required")
			}
			if password == "" {
				return fmt.Errorf("%s is required", passwordEnv)
			}

			form := url.Values{}
			form.Set("ssid", ssid)
			form.Set("password", password)
			form.Set("device_id", deviceID)
			if apiKey != "" {
				form.Set("api_key", apiKey)
			}

			client := &http.Client{Timeout: timeout}
			resp, err := client.Post(strings.TrimRight(portal, "/")+"/provision",
				"application/x-www-form-urlencoded",
				strings.NewReader(form.Encode()))
			if err != nil {
				return fmt.Errorf("failed to reach portal: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("provisioning failed (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Provisioning accepted; the device will restart and join", ssid)
			return nil
		},
	}

	cmd.Flags().StringVar(&portal, "portal", "http://192.168.4.1", "portal base URL")
	cmd.Flags().StringVar(&ssid, "ssid", "", "network to join")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "device identifier")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "optional API key")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	return cmd
}
