package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCommandTree(t *testing.T) {
	tests := []struct {
		parent *cobra.Command
		want   []string
	}{
		{rootCmd, []string{"hunt", "watch", "runs", "leads", "dnc", "signals", "export", "push", "serve"}},
		{runsCmd, []string{"list", "show", "stats"}},
		{leadsCmd, []string{"list", "show", "set-status"}},
		{dncCmd, []string{"add", "remove", "list", "check"}},
	}

	for _, tt := range tests {
		t.Run(tt.parent.Name(), func(t *testing.T) {
			registered := make(map[string]bool)
			for _, c := range tt.parent.Commands() {
				registered[c.Name()] = true
			}
			for _, name := range tt.want {
				assert.True(t, registered[name], "%s is missing subcommand %q", tt.parent.Name(), name)
			}
		})
	}
}
