package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"healthsense/config"
	"healthsense/internal/port"
)

// CurrentSchemaVersion is the current storage schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion  = []byte("schema_version")
	keyConfigHash     = []byte("config_hash")
	keyCorpusManifest = []byte("corpus_manifest")
	keyIndexGen       = []byte("index_generation")
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		if b == nil {
			return nil
		}

		if versionData := b.Get(keySchemaVersion); versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				info.Version = 1
			}
		}

		if hashData := b.Get(keyConfigHash); hashData != nil {
			info.ConfigHash = string(hashData)
		}

		return nil
	})
	return &info, err
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the index-relevant configuration. A changed hash
// means stored chunks no longer match the chunking/embedding setup and the
// index must be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkTokens  int     `json:"chunk_tokens"`
		ChunkOverlap int     `json:"chunk_overlap"`
		K1           float64 `json:"k1"`
		B            float64 `json:"b"`
		EmbProvider  string  `json:"emb_provider"`
		EmbModel     string  `json:"emb_model"`
		EmbDimension int     `json:"emb_dimension"`
	}{
		ChunkTokens:  cfg.Corpus.ChunkTokens,
		ChunkOverlap: cfg.Corpus.ChunkOverlap,
		K1:           cfg.Corpus.K1,
		B:            cfg.Corpus.B,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// CorpusManifest fingerprints the guideline files that produced the index.
type CorpusManifest struct {
	Files []ManifestEntry `json:"files"`
}

type ManifestEntry struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

// BuildManifest creates a manifest from walked files.
func BuildManifest(files []port.FileInfo) CorpusManifest {
	m := CorpusManifest{Files: make([]ManifestEntry, 0, len(files))}
	for _, f := range files {
		m.Files = append(m.Files, ManifestEntry{
			Path:    f.Path,
			Size:    f.Size,
			ModTime: f.ModTime,
		})
	}
	return m
}

func (s *BoltStore) GetManifest() (*CorpusManifest, error) {
	var m CorpusManifest
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyCorpusManifest)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &m)
	})
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

func (s *BoltStore) SetManifest(m CorpusManifest) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyCorpusManifest, data)
	})
}

// IndexGeneration returns a counter bumped on every successful ingest; the
// answer cache uses it to drop entries produced against an older index.
func (s *BoltStore) IndexGeneration() (uint64, error) {
	var gen uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyIndexGen)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &gen)
	})
	return gen, err
}

func (s *BoltStore) BumpIndexGeneration() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		var gen uint64
		if data := b.Get(keyIndexGen); data != nil {
			json.Unmarshal(data, &gen)
		}
		gen++
		data, err := json.Marshal(gen)
		if err != nil {
			return err
		}
		return b.Put(keyIndexGen, data)
	})
}

// RebuildCheck describes whether the index must be rebuilt before use.
type RebuildCheck struct {
	NeedsRebuild bool
	Reason       string
}

// CheckRebuild decides whether the stored index is still valid for the
// current configuration.
func (s *BoltStore) CheckRebuild(cfg *config.Config) (*RebuildCheck, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	if info.Version > CurrentSchemaVersion {
		return &RebuildCheck{
			NeedsRebuild: true,
			Reason:       fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion),
		}, nil
	}

	newHash := ComputeConfigHash(cfg)
	if info.ConfigHash != "" && info.ConfigHash != newHash {
		return &RebuildCheck{
			NeedsRebuild: true,
			Reason:       "index configuration changed",
		}, nil
	}

	return &RebuildCheck{}, nil
}

// CommitSchemaInfo records the current schema version and config hash after
// a successful ingest.
func (s *BoltStore) CommitSchemaInfo(cfg *config.Config) error {
	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

// Clear removes all indexed data (for rebuild). Sessions and schema keys
// survive a rebuild.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketTerms, bucketDocChunks, bucketVectors}
		for _, name := range buckets {
			b := tx.Bucket(name)
			if b == nil {
				continue
			}

			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}

		statsBucket := tx.Bucket(bucketStats)
		if statsBucket != nil {
			c := statsBucket.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				key := string(k)
				if key != string(keySchemaVersion) && key != string(keyConfigHash) && key != string(keyIndexGen) {
					if err := statsBucket.Delete(k); err != nil {
						return err
					}
				}
			}
		}

		return nil
	})
}
