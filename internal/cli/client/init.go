package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates the init command, which saves the API URL and default
// session to the global config.
func InitCmd() *cobra.Command {
	var apiURL string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save client configuration",
		Long:  "Writes the API URL and default session id to the global config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = defaultAPIURL
			}

			config := &GlobalConfig{APIURL: apiURL, SessionID: sessionID}
			if err := SaveGlobalConfig(config); err != nil {
				return err
			}

			configPath, err := GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Default session id")

	return cmd
}
