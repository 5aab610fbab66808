package main

import (
	"fmt"
	"strings"

	"edurag/internal/retrieval"
	"edurag/internal/textproc"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(expandCmd)
}

var expandCmd = &cobra.Command{
	Use:   "expand <query>",
	Short: "Print the query variants used for retrieval",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		for i, v := range retrieval.ExpandQuery(query) {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, v)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "keywords: %s\n", strings.Join(textproc.Keywords(query, 2), ", "))
		return nil
	},
}
