package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <client-id>",
	Short: "Show recent conversation log entries for a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initAdvisor(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Store == nil {
			return eris.New("conversation logging is disabled (store.driver is \"none\")")
		}

		events, err := env.Store.ListEvents(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("no conversations recorded")
			return nil
		}

		for _, e := range events {
			fmt.Printf("%s  [%s  conf %.2f  rel %.2f]\n", e.Timestamp.Format("2006-01-02 15:04:05"),
				e.Query.Intent, e.Query.Confidence, e.Answer.OverallReliability)
			fmt.Printf("  Q: %s\n", e.RawText)
			fmt.Printf("  A: %s\n\n", firstLine(e.Answer.Text))
		}
		return nil
	},
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}
