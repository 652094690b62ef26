package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"convocoach/internal/config"
	"convocoach/internal/enrichment"
	"convocoach/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the conversation registry",
	}

	registryCmd.AddCommand(newRegistryListCommand(ctx))
	registryCmd.AddCommand(newRegistryShowCommand(ctx))

	return registryCmd
}

func newRegistryListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(_ *config.Config, store *registry.Store, _ *enrichment.Store) error {
				statuses, err := parseStatusFilter(statusFilter)
				if err != nil {
					return err
				}

				records, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				if jsonOut {
					views := make([]conversationJSON, 0, len(records))
					for _, record := range records {
						views = append(views, conversationView(record))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No conversations registered")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.ConversationID,
						string(record.Status),
						record.SourceURI,
						formatTime(&record.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Conversation", "Status", "Source", "Updated"},
					rows,
				))

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, statsLine(stats))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (e.g. NEW,FAILED_ENRICH)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit records as JSON")
	return cmd
}

func newRegistryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show one conversation with its stored enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(_ *config.Config, store *registry.Store, enriched *enrichment.Store) error {
				record, found, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("conversation %s is not registered", args[0])
				}

				enrichmentRecord, hasEnrichment, err := enriched.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if jsonOut {
					view := struct {
						Conversation conversationJSON `json:"conversation"`
						Enrichment   *enrichmentJSON  `json:"enrichment,omitempty"`
					}{Conversation: conversationView(record)}
					if hasEnrichment {
						ev := enrichmentView(enrichmentRecord)
						view.Enrichment = &ev
					}
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Conversation: %s\n", record.ConversationID)
				fmt.Fprintf(out, "Status:       %s\n", record.Status)
				fmt.Fprintf(out, "Source:       %s\n", record.SourceURI)
				if record.ErrorDetail != "" {
					fmt.Fprintf(out, "Error:        %s\n", record.ErrorDetail)
				}
				fmt.Fprintf(out, "Ingested:     %s\n", formatTime(record.IngestedAt))
				fmt.Fprintf(out, "Enriched:     %s\n", formatTime(record.EnrichedAt))
				fmt.Fprintf(out, "Coached:      %s\n", formatTime(record.CoachedAt))

				if !hasEnrichment {
					fmt.Fprintln(out, "No enrichment stored")
					return nil
				}

				fmt.Fprintf(out, "Catalog:      %s\n", enrichmentRecord.CatalogVersion)
				fmt.Fprintf(out, "Flags:        %s\n", joinOrNone(enrichmentRecord.Flags))
				if enrichmentRecord.AnnotationSummary != "" {
					fmt.Fprintf(out, "Annotation:   %s\n", enrichmentRecord.AnnotationSummary)
				}

				if len(enrichmentRecord.PhraseMatches) > 0 {
					rows := make([][]string, 0, len(enrichmentRecord.PhraseMatches))
					for _, result := range enrichmentRecord.PhraseMatches {
						rows = append(rows, []string{
							result.DisplayName,
							strconv.Itoa(result.MatchCount),
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Matcher", "Matches"},
						rows,
						1,
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the record as JSON")
	return cmd
}

func parseStatusFilter(filter string) ([]registry.Status, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	parts := strings.Split(filter, ",")
	statuses := make([]registry.Status, 0, len(parts))
	for _, part := range parts {
		status, ok := registry.ParseStatus(part)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(part))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func statsLine(stats map[registry.Status]int) string {
	if len(stats) == 0 {
		return "0 conversations"
	}
	parts := make([]string, 0, len(stats))
	total := 0
	for _, status := range registry.AllStatuses() {
		if count, ok := stats[status]; ok && count > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", status, count))
			total += count
		}
	}
	return fmt.Sprintf("%d conversations (%s)", total, strings.Join(parts, ", "))
}
