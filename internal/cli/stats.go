package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openIndexStore(GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Documents:       %d\n", stats.TotalDocs)
	fmt.Printf("Chunks:          %d\n", stats.TotalChunks)
	fmt.Printf("Avg chunk len:   %.1f tokens\n", stats.AvgChunkLen)

	if info, err := st.GetSchemaInfo(); err == nil && info != nil {
		fmt.Printf("Schema version:  %d\n", info.Version)
	}
	if gen, err := st.IndexGeneration(); err == nil {
		fmt.Printf("Index generation: %d\n", gen)
	}

	docs, err := st.ListDocs()
	if err == nil && len(docs) > 0 {
		fmt.Println("\nGuidelines:")
		for _, doc := range docs {
			fmt.Printf("  - %s (%d pages)\n", doc.Title, doc.Pages)
		}
	}

	return nil
}
