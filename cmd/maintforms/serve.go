package main

import (
	"github.com/artpar/maintforms/bootstrap"
	"github.com/spf13/cobra"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the maintforms HTTP API.

The server will:
  - Load configuration from maintforms.yaml (or --config)
  - Or load configuration from MAINTFORMS_* environment variables
  - Open the configured storage (sqlite, bolt or memory)
  - Serve the field API under /api, plus /health, /version and /metrics

Environment variables:
  MAINTFORMS_STORAGE_DRIVER              - sqlite, bolt or memory
  MAINTFORMS_STORAGE_DSN                 - Database path
  MAINTFORMS_SERVER_PORT                 - Server port (default: 8080)
  MAINTFORMS_FIELDS_SYSTEM_FIELD_POLICY  - forbid or audit
  MAINTFORMS_ADMIN_API_KEY_HASH          - bcrypt hash guarding schema changes
  MAINTFORMS_LOG_LEVEL                   - debug, info, warn, error

Examples:
  maintforms serve
  maintforms serve --config /etc/maintforms/config.yaml
  maintforms serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		Watch:      hotReload,
	})
	if err != nil {
		return err
	}
	return a.Run()
}
