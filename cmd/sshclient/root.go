package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sshclient",
		Short: "Upload and download files and run remote commands over named connections",
		Long: `sshclient transfers files between the local machine and SFTP servers.

Connections are defined in sshclient.yaml or ~/.sshclient/config.yaml and
selected with --connection. Every file is attempted; failures are reported
per file and the command exits 1 if any file failed.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initLogger(a.logLevel)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default ./sshclient.yaml or ~/.sshclient/config.yaml)")
	flags.StringVarP(&a.connection, "connection", "c", "", `Connection name (default from config, else "default")`)
	flags.BoolVarP(&a.noInteraction, "no-interaction", "n", false, "Never prompt; create missing directories without asking")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.resultJSONFile, "result-json-file", "", "Write the transfer result as JSON to this file")

	cmd.AddCommand(
		newUploadCmd(a),
		newDownloadCmd(a),
		newListCmd(a),
		newExecCmd(a),
		newScriptsCmd(a),
		newConnectionsCmd(a),
		newConfigCmd(a),
	)
	return cmd
}
