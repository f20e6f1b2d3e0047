package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigihdev/ssh-client/internal/config"
)

func newConnectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "List configured connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			if len(a.cfg.Connections) == 0 {
				fmt.Fprintln(a.stdout, dimStyle.Render("no connections configured; run 'sshclient config init'"))
				return nil
			}

			def := a.connectionName()
			for _, name := range a.cfg.Names() {
				c := a.cfg.Connections[name]
				marker := " "
				if name == def {
					marker = okStyle.Render("*")
				}
				fmt.Fprintf(a.stdout, "%s %-16s %s\n", marker, name, dimStyle.Render(describe(c)))
			}
			return nil
		},
	}
}

func describe(c config.Connection) string {
	if c.LocalRoot != "" {
		return "local " + c.LocalRoot
	}
	port := c.Port
	if port == 0 {
		port = 22
	}
	s := fmt.Sprintf("%s@%s:%d", c.User, c.Host, port)
	if c.RemotePath != "" {
		s += c.RemotePath
	}
	if c.BastionHost != "" {
		s += " via " + c.BastionHost
	}
	return s
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "sshclient.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote sample configuration to %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a value for use in the configuration file",
		Long: `Encrypt a value with the key in $SSHCLIENT_SECRET (also read from .env).
The printed enc: value can replace any host, user, password or key entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(""); err != nil {
				return err
			}
			enc, err := config.Encrypt(args[0], os.Getenv(config.SecretEnv))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, enc)
			return nil
		},
	})

	return cmd
}
