package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"healthsense/internal/domain"
)

var (
	askQuestion string
	askLanguage string
	askJSON     bool
	askTopK     int
	askTimeout  time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a public health question",
	Long: `Ask a question and receive an answer grounded in the ingested
guidelines. The answer language follows the question language unless
--lang pins one.

Examples:
  healthsense ask -q "How does dengue spread?"
  healthsense ask -q "डेंगू कैसे फैलता है?"
  healthsense ask -q "dengue symptoms" --lang hi --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask (required)")
	askCmd.Flags().StringVar(&askLanguage, "lang", "", "answer language tag (en, hi, mr, bn, ta, te, es)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "override configured number of excerpts")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "generation timeout")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if askLanguage != "" && !domainSupported(askLanguage) {
		return fmt.Errorf("unsupported language: %s (supported: %v)", askLanguage, domain.SupportedLanguages)
	}
	if askTopK > 0 {
		cfg.Retrieve.TopK = askTopK
	}

	st, err := openIndexStore(GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline, err := buildAnswerPipeline(cfg, st)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	answer, err := pipeline.AnswerIn(ctx, askQuestion, askLanguage)
	if err != nil {
		return err
	}

	if askJSON {
		out, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(answer.Text)
	return nil
}

func domainSupported(lang string) bool {
	for _, tag := range domain.SupportedLanguages {
		if tag == lang {
			return true
		}
	}
	return false
}
