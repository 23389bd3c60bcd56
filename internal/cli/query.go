package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"healthsense/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Inspect raw retrieval results",
	Long: `Search the guideline index and print the retrieved chunks with
their scores and coverage verdict, without calling the language model.

Examples:
  healthsense query -q "dengue transmission"
  healthsense query -q "hand hygiene" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openIndexStore(GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	if queryTopK > 0 {
		cfg.Retrieve.TopK = queryTopK
	}

	embedder, vectorStore := buildEmbeddingStack(cfg, st)
	retrieveUC := buildRetrieveUseCase(cfg, st, embedder, vectorStore)

	retrieval, err := retrieveUC.Retrieve(domain.Query{Text: queryText})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		out, err := json.MarshalIndent(retrieval, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Coverage: %s (best similarity %.3f)\n\n", retrieval.Coverage, retrieval.BestSimilarity)

	if len(retrieval.Chunks) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, sc := range retrieval.Chunks {
		title := sc.Chunk.DocID
		if doc, err := st.GetDoc(sc.Chunk.DocID); err == nil {
			title = doc.Title
		}
		fmt.Printf("[%d] %s (page %d, score %.4f)\n", i+1, title, sc.Chunk.Page, sc.Score)
		fmt.Printf("%s\n\n", sc.Chunk.Text)
	}

	return nil
}
