package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"convocoach/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the phrase matcher catalog",
	}

	catalogCmd.AddCommand(newCatalogShowCommand(ctx))

	return catalogCmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showPhrases bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active matchers and their phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}

			if jsonOut {
				view := struct {
					Version  string            `json:"version"`
					Matchers []catalog.Matcher `json:"matchers"`
				}{Version: cat.Version(), Matchers: cat.Matchers()}
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalog version: %s\n", cat.Version())

			rows := make([][]string, 0, cat.Len())
			for _, matcher := range cat.Matchers() {
				rows = append(rows, []string{
					matcher.ID,
					matcher.DisplayName,
					strconv.Itoa(len(matcher.Phrases)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Matcher", "Display Name", "Phrases"},
				rows,
				2,
			))

			if showPhrases {
				for _, matcher := range cat.Matchers() {
					fmt.Fprintf(out, "\n%s:\n  %s\n", matcher.ID, strings.Join(matcher.Phrases, "\n  "))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the catalog as JSON")
	cmd.Flags().BoolVar(&showPhrases, "phrases", false, "List every phrase per matcher")
	return cmd
}
