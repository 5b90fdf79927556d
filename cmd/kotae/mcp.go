package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/mcpserver"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve kotae tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := a.open()
			if err != nil {
				return err
			}
			defer comps.Close()

			s := mcpserver.New(comps.Ingestor, comps.Answerer, mcpserver.Options{
				Version:  version,
				DefaultK: comps.Config.Retrieval.TopK,
				MaxK:     comps.Config.Retrieval.MaxK,
				Logger:   comps.Logger,
			})
			return mcpserver.ServeStdio(s)
		},
	}
}
