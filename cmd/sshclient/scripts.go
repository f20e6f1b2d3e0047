package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vigihdev/ssh-client/internal/config"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newScriptsCmd(a *app) *cobra.Command {
	var (
		run    string
		list   bool
		info   string
		search string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "List, inspect and run named remote scripts from the config",
		Long: `Scripts are named shell commands stored under "scripts" in the config file:

  scripts:
    disk:
      description: Disk usage of the remote path
      command: du -sh . && df -h .

A script runs on the selected connection from its remote path, like exec.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}

			switch {
			case list:
				return a.printScripts(a.cfg.ScriptNames())
			case search != "":
				names := a.cfg.SearchScripts(search)
				if len(names) == 0 {
					fmt.Fprintf(a.stdout, "no scripts match %q\n", search)
					return nil
				}
				return a.printScripts(names)
			case info != "":
				return a.printScriptInfo(info)
			}

			script, err := a.cfg.Script(run)
			if err != nil {
				return scriptLookupError(run, err)
			}
			ctx := cmd.Context()
			runner, err := a.openRunner(ctx, dir)
			if err != nil {
				return err
			}
			if _, err := a.runRemote(ctx, runner, script.Command); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s script %s finished\n", okStyle.Render("✓"), run)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&run, "script", "s", "", "Run the named script")
	f.BoolVarP(&list, "list", "l", false, "List configured scripts")
	f.StringVarP(&info, "info", "i", "", "Show the description and command of a script")
	f.StringVar(&search, "search", "", "List scripts whose name, description or command contains text")
	f.StringVarP(&dir, "dir", "d", "", "Remote directory to run the script from")
	cmd.MarkFlagsMutuallyExclusive("script", "list", "info", "search")
	cmd.MarkFlagsOneRequired("script", "list", "info", "search")
	return cmd
}

func scriptLookupError(name string, err error) error {
	if errors.Is(err, config.ErrScriptNotFound) {
		return fmt.Errorf("script %q is not configured; see scripts --list", name)
	}
	return err
}

func (a *app) printScripts(names []string) error {
	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "no scripts configured")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("NAME", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, name := range names {
		t.Row(name, a.cfg.Scripts[name].Description)
	}
	fmt.Fprintln(a.stdout, t.Render())
	return nil
}

func (a *app) printScriptInfo(name string) error {
	script, err := a.cfg.Script(name)
	if err != nil {
		return scriptLookupError(name, err)
	}
	fmt.Fprintf(a.stdout, "%s %s\n", summaryStyle.Render("Script:"), name)
	if script.Description != "" {
		fmt.Fprintf(a.stdout, "%s %s\n", summaryStyle.Render("Description:"), script.Description)
	}
	fmt.Fprintf(a.stdout, "%s %s\n", summaryStyle.Render("Command:"), script.Command)
	fmt.Fprintf(a.stdout, "%s sshclient scripts -s %s\n", dimStyle.Render("Usage:"), name)
	return nil
}
