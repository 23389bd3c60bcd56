package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"healthsense/internal/port"
)

const metaChunkIDKey = "chunk_id"

// QdrantVectorStore implements VectorStore against a qdrant instance over
// grpc. Selected with `vector.backend: qdrant` for deployments where the
// corpus outgrows the in-process bolt store.
type QdrantVectorStore struct {
	points     qdrant.PointsClient
	collection string
	dimension  int
}

// NewQdrantVectorStore connects to qdrant and ensures the collection exists
// with a cosine-distance configuration.
func NewQdrantVectorStore(addr, collection string, dimension int) (*QdrantVectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	ctx := context.Background()
	collections := qdrant.NewCollectionsClient(conn)

	_, err = collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: collection})
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return nil, fmt.Errorf("failed to check collection: %w", err)
		}
		_, err = collections.Create(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(dimension),
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create collection: %w", err)
		}
	}

	return &QdrantVectorStore{
		points:     qdrant.NewPointsClient(conn),
		collection: collection,
		dimension:  dimension,
	}, nil
}

// pointID maps a chunk ID to a deterministic qdrant UUID-shaped ID.
func pointID(chunkID string) string {
	sum := md5.Sum([]byte(chunkID))
	return hex.EncodeToString(sum[:])
}

func (s *QdrantVectorStore) Upsert(items []port.VectorItem) error {
	if len(items) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(items))
	for i, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
		}

		payload := map[string]*qdrant.Value{
			metaChunkIDKey: {Kind: &qdrant.Value_StringValue{StringValue: item.ID}},
		}
		for k, v := range item.Metadata {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(item.ID)),
			Vectors: qdrant.NewVectors(item.Vector...),
			Payload: payload,
		}
	}

	resp, err := s.points.Upsert(context.Background(), &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	st := resp.GetResult().GetStatus()
	if st != qdrant.UpdateStatus_Acknowledged && st != qdrant.UpdateStatus_Completed {
		return fmt.Errorf("qdrant upsert not acknowledged: status %d", st)
	}
	return nil
}

func (s *QdrantVectorStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	resp, err := s.points.Search(context.Background(), &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]port.VectorResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		if payload == nil {
			continue
		}

		chunkID := payload[metaChunkIDKey].GetStringValue()
		if chunkID == "" {
			continue
		}

		metadata := make(map[string]string)
		for k, v := range payload {
			if k == metaChunkIDKey {
				continue
			}
			if sv := v.GetStringValue(); sv != "" {
				metadata[k] = sv
			}
		}

		results = append(results, port.VectorResult{
			ID:       chunkID,
			Score:    float64(point.GetScore()),
			Metadata: metadata,
		})
	}

	return results, nil
}

func (s *QdrantVectorStore) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(pointID(id))
	}

	_, err := s.points.Delete(context.Background(), &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (s *QdrantVectorStore) Count() (int, error) {
	exact := true
	resp, err := s.points.Count(context.Background(), &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}
