package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	sshclient "github.com/vigihdev/ssh-client"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	summaryStyle = lipgloss.NewStyle().
			Bold(true)
)

// printOutcome writes one line per transferred item.
func (a *app) printOutcome(o sshclient.Outcome) {
	name := o.Entry.RelPath
	if name == "" {
		name = o.Source
	}

	if o.Status == sshclient.StatusSuccess {
		fmt.Fprintf(a.stdout, "%s %s %s\n", okStyle.Render("✓"), name,
			dimStyle.Render("("+humanize.IBytes(uint64(o.Bytes))+")"))
		return
	}
	fmt.Fprintf(a.stdout, "%s %s: %s\n", failStyle.Render("✗"), name, o.Message)
}

// finish prints the summary, writes the result file when requested and
// turns item failures into errBatchFailed.
func (a *app) finish(r *sshclient.Report) error {
	fmt.Fprintln(a.stdout, summaryStyle.Render(r.Summary()))

	if a.resultJSONFile != "" {
		if err := r.WriteJSONFile(a.resultJSONFile); err != nil {
			return err
		}
		a.log.Debugf("wrote result to %s", a.resultJSONFile)
	}

	if r.ErrorCount > 0 {
		return errBatchFailed
	}
	return nil
}
