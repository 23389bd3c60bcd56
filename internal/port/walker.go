package port

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// Extractor turns a source file into per-page text.
type Extractor interface {
	Extract(path string) ([]PageText, error)
}
