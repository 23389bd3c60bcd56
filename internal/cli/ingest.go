package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"healthsense/config"
	"healthsense/internal/adapter/analyzer"
	"healthsense/internal/adapter/chunker"
	"healthsense/internal/adapter/fs"
	"healthsense/internal/adapter/pdfex"
	"healthsense/internal/adapter/store"
	"healthsense/internal/usecase"
)

var ingestRebuild bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest guideline documents into the index",
	Long: `Ingest PDF, text, and markdown guideline documents for retrieval.
The index is stored in .healthsense/index.db within the project directory.

Ingestion is incremental: unchanged files are skipped and removed files
are deleted from the index. Use --rebuild to discard the index first.

Examples:
  healthsense ingest                # Ingest the configured corpus directory
  healthsense ingest data/raw       # Ingest a specific directory
  healthsense ingest --rebuild      # Force a full rebuild`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the index and ingest from scratch")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	corpusDir := filepath.Join(GetRootDir(), cfg.Corpus.DataDir)
	if len(args) > 0 {
		var err error
		corpusDir, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(corpusDir)
	if err != nil {
		return fmt.Errorf("corpus directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus path is not a directory: %s", corpusDir)
	}

	if err := config.EnsureStateDir(GetRootDir()); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	st, err := store.NewBoltStore(config.IndexDBPath(GetRootDir()))
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	check, err := st.CheckRebuild(cfg)
	if err != nil {
		return fmt.Errorf("failed to check index state: %w", err)
	}
	if ingestRebuild || check.NeedsRebuild {
		if check.NeedsRebuild {
			fmt.Printf("Index rebuild required: %s\n", check.Reason)
		}
		fmt.Println("Clearing existing index...")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}

	tokenizer := analyzer.NewTokenizer()
	walker := fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	extractor := pdfex.NewExtractor()
	passageChunker := chunker.NewPassageChunker(cfg.Corpus.ChunkTokens, cfg.Corpus.ChunkOverlap, tokenizer)
	embedder, vectorStore := buildEmbeddingStack(cfg, st)

	ingestUC := usecase.NewIngestUseCase(st, walker, extractor, passageChunker, embedder, vectorStore)

	fmt.Printf("Scanning %s...\n", corpusDir)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time
	var initialized bool

	ingestUC.Progress = func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if !initialized {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
			initialized = true
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			remaining := total - processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := ingestUC.Ingest(corpusDir, cfg)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngested:  %d files\n", result.FilesIngested)
	fmt.Printf("Skipped:   %d files (unchanged)\n", result.FilesSkipped)
	fmt.Printf("Deleted:   %d files\n", result.FilesDeleted)
	fmt.Printf("Chunks:    %d\n", result.ChunksCreated)
	if result.ChunksEmbedded > 0 {
		fmt.Printf("Embedded:  %d chunks\n", result.ChunksEmbedded)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\n%d errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%02ds", m, s)
}
