package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/storage"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index size, backends and ingestion counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			comps, err := a.open()
			if err != nil {
				return err
			}
			defer comps.Close()

			stats, err := comps.Ledger.Stats(cmd.Context())
			if err != nil {
				return err
			}
			st := comps.Config.Storage
			disk, err := storage.DiskUsageBytes(st.IndexPath, st.LedgerPath, st.KeywordIndexPath)
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), &cli.Status{
				IndexType:      comps.VectorIndex.Type(),
				Entries:        comps.VectorIndex.Size(),
				Embedder:       comps.Embedder.Name(),
				Generator:      comps.Generator.Name(),
				DataDir:        st.DataDir,
				DiskUsageBytes: disk,
				Ingestions:     stats,
			}, format)
		},
	}
}

func newIngestionsCmd(a *app) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "ingestions",
		Short: "List recorded ingestions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			comps, err := a.open()
			if err != nil {
				return err
			}
			defer comps.Close()

			records, err := comps.Ledger.List(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			return cli.WriteIngestions(cmd.OutOrStdout(), records, format)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}
