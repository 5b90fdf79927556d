package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest files or directories into the index",
		Args:  cobra.MinimumNArgs(1),
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

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var failed int
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.Failure(err.Error()))
					failed++
					continue
				}
				if info.IsDir() {
					res, err := comps.Ingestor.IngestDirectory(ctx, path, walkOptions(comps.Config))
					if err != nil {
						comps.Logger.Debug("ingest directory failed", zap.String("path", path), zap.Error(err))
						fmt.Fprintln(cmd.ErrOrStderr(), cli.Failure(fmt.Sprintf("%s: %v", path, err)))
						failed++
						continue
					}
					if err := cli.WriteTreeResult(out, path, res, format); err != nil {
						return err
					}
					continue
				}
				res, err := comps.Ingestor.IngestFile(ctx, path)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.Failure(fmt.Sprintf("%s: %v", path, err)))
					failed++
					continue
				}
				if err := cli.WriteIngestResult(out, res, format); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paths failed", failed, len(args))
			}
			return nil
		},
	}
}

func newAddRepoCmd(a *app) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "add-repo <url>",
		Short: "Clone a git repository and ingest its files",
		Args:  cobra.ExactArgs(1),
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

			res, err := comps.Ingestor.IngestRepository(cmd.Context(), args[0], branch)
			if err != nil {
				return err
			}
			return cli.WriteRepositoryResult(cmd.OutOrStdout(), res, format)
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to clone (default: repository.branch, then the remote HEAD)")
	return cmd
}
