package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kisanmitra/advisor/internal/orchestrator"
)

var (
	askClientID     string
	askLanguageHint string
	askLocationHint string
	askVerbose      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question from the command line",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initAdvisor(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		answer, err := env.Orchestrator.Handle(cmd.Context(), orchestrator.Request{
			Text:         strings.Join(args, " "),
			ClientID:     askClientID,
			LanguageHint: askLanguageHint,
			LocationHint: askLocationHint,
		})
		if err != nil {
			return err
		}

		fmt.Println(answer.Text)
		if askVerbose {
			fmt.Println()
			fmt.Printf("intent: %s (confidence %.2f)\n", answer.Query.Intent, answer.Query.Confidence)
			fmt.Printf("language: %s\n", answer.Language)
			fmt.Printf("reliability: %.2f", answer.OverallReliability)
			if answer.BestEffort {
				fmt.Print(" (best effort)")
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askClientID, "client-id", "cli", "client identity for rate limiting and the conversation log")
	askCmd.Flags().StringVar(&askLanguageHint, "language", "", "language hint (en, hi, hi-en)")
	askCmd.Flags().StringVar(&askLocationHint, "location", "", "location hint used when the question names no place")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "print classification and reliability details")
	rootCmd.AddCommand(askCmd)
}
