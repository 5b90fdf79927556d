package main

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
)

func newAskCmd(a *app) *cobra.Command {
	var raw bool
	var style string
	cmd := &cobra.Command{
		Use:   "ask <prompt>...",
		Short: "Answer a prompt using the indexed documents as context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.GenerateRequest{Prompt: strings.Join(args, " ")}
			if err := req.Validate(); err != nil {
				return err
			}
			comps, err := a.open()
			if err != nil {
				return err
			}
			defer comps.Close()

			answer, err := comps.Answerer.Answer(cmd.Context(), req.Prompt)
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), answer, cli.AnswerOptions{
				Raw:   raw,
				Style: style,
				Width: terminalWidth(),
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the model output without markdown rendering")
	cmd.Flags().StringVar(&style, "style", "", "glamour style (dark, light, notty, ...); detected from the terminal when empty")
	return cmd
}

func newRetrieveCmd(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "retrieve <query>...",
		Short: "Show the indexed chunks most similar to a query",
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

			req := models.RetrieveRequest{Query: strings.Join(args, " "), K: k}
			if err := req.Validate(comps.Config.Retrieval.TopK, comps.Config.Retrieval.MaxK); err != nil {
				return err
			}
			chunks, err := comps.Answerer.Retrieve(cmd.Context(), req.Query, req.K)
			if err != nil {
				return err
			}
			return cli.WriteChunks(cmd.OutOrStdout(), req.Query, chunks, format)
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of chunks (default: retrieval.top_k)")
	return cmd
}

func terminalWidth() int {
	w, _, err := term.GetSize(0)
	if err != nil || w <= 0 {
		return 80
	}
	if w > 120 {
		return 120
	}
	return w - 2
}
