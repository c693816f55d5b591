package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bookrag/internal/adapter/embedding"
	"bookrag/internal/domain"
	"bookrag/internal/usecase"
)

var (
	askInteractive bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed books",
	Long: `Retrieve the passages closest to the question and generate an answer
grounded in them, followed by the cited sources.

Examples:
  bookrag ask "How do I price a premium offer?"
  bookrag ask -i                      # interactive session with history`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "start an interactive session")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if !askInteractive && len(args) == 0 {
		return fmt.Errorf("a question is required (or use --interactive)")
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	model, err := newLLM(cfg)
	if err != nil {
		// Answers degrade to the fallback text without a model.
		log.Warn().Err(err).Msg("language model not configured")
		model = nil
	}

	k, err := openKnowledge(cfg, GetRootDir(), embedder.Dimension())
	if err != nil {
		return err
	}
	defer k.Close()

	svc := newServices(cfg, k, embedder, model, nil)

	if !askInteractive {
		answer := svc.ask.Ask(cmd.Context(), usecase.AskRequest{Query: strings.Join(args, " ")})
		return printAnswer(answer)
	}

	fmt.Println(boldGreen("Book knowledge assistant"))
	fmt.Println("Type your question and press Enter. Type 'exit' to quit.")
	fmt.Println()

	var (
		history        []domain.Message
		conversationID string
	)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" {
			break
		}
		if input == "" {
			continue
		}

		answer := svc.ask.Ask(cmd.Context(), usecase.AskRequest{
			Query:          input,
			ConversationID: conversationID,
			History:        history,
		})
		conversationID = answer.ConversationID
		if err := printAnswer(answer); err != nil {
			return err
		}

		history = append(history,
			domain.Message{Role: domain.RoleUser, Content: input},
			domain.Message{Role: domain.RoleAssistant, Content: answer.Text},
		)
	}
	return scanner.Err()
}

func printAnswer(answer domain.Answer) error {
	if askJSON {
		output, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	switch answer.Status {
	case domain.AnswerGenerated:
		fmt.Printf("%s %s\n", boldCyan("Assistant:"), answer.Text)
	case domain.AnswerFallback, domain.AnswerUnavailable:
		fmt.Printf("%s %s\n", yellow("Assistant:"), answer.Text)
	default:
		fmt.Println(red(answer.Text))
	}

	if len(answer.Citations) > 0 {
		fmt.Printf("\n%s\n", faint("Sources:"))
		for i, c := range answer.Citations {
			fmt.Printf("  [%d] %s - %s (similarity %.3f)\n", i+1, boldCyan(c.Book), c.Chapter, c.Similarity)
			fmt.Printf("      %s\n", faint(c.TextSnippet))
		}
	}
	fmt.Println()
	return nil
}
