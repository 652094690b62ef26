package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"convocoach/internal/config"
	"convocoach/internal/pipeline"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <conversation-id> <source-uri>",
		Short: "Register a conversation and validate its artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(_ *config.Config, p *pipeline.Pipeline) error {
				record, err := p.Ingest(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", record.ConversationID, record.Status)
				return nil
			})
		},
	}
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "enrich <conversation-id>",
		Short: "Run phrase matching, flag derivation, and analysis for an ingested conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(_ *config.Config, p *pipeline.Pipeline) error {
				record, err := p.Enrich(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, enrichmentView(record))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s enriched: %d matches across %d matchers, flags: %s\n",
					record.ConversationID, totalMatches(record), len(record.PhraseMatches), joinOrNone(record.Flags))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the enrichment record as JSON")
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "process <conversation-id> <source-uri>",
		Short: "Ingest then enrich in one call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(_ *config.Config, p *pipeline.Pipeline) error {
				record, err := p.Process(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, enrichmentView(record))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s processed: %d matches, flags: %s\n",
					record.ConversationID, totalMatches(record), joinOrNone(record.Flags))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the enrichment record as JSON")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <conversation-id>",
		Short: "Move a failed conversation back to its last good status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(_ *config.Config, p *pipeline.Pipeline) error {
				record, err := p.Reset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reset to %s\n", record.ConversationID, record.Status)
				return nil
			})
		},
	}
}

func newCoachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "coach <conversation-id>",
		Short: "Mark an enriched conversation as coached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(_ *config.Config, p *pipeline.Pipeline) error {
				record, err := p.MarkCoached(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", record.ConversationID, record.Status)
				return nil
			})
		},
	}
}
