// Package qdrant provides a remote Qdrant-backed implementation of
// vectorstores.Index for deployments where the index should outlive the
// service process. Chunk metadata travels as point payload; a sequence number
// preserves insertion order across scroll reads.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/vectorstores"
)

var ErrConnectionFailed = errors.New("qdrant: connection failed")

const (
	payloadText     = "text"
	payloadPage     = "page"
	payloadDocument = "document"
	payloadSeq      = "seq"

	overfetchFactor = 3
	scrollBatchSize = 256
)

type Index struct {
	client  *qdrant.Client
	options options
	logger  *slog.Logger
	seq     atomic.Int64
}

var _ vectorstores.Index = (*Index)(nil)

// New connects to Qdrant and makes sure the collection exists with Euclidean
// distance, matching the squared-L2 semantics of the flat backend up to a
// monotonic transform.
func New(opts ...Option) (*Index, error) {
	storeOptions, err := parseOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := storeOptions.logger.With("component", "qdrant_index", "collection", storeOptions.collectionName)

	config := &qdrant.Config{
		Host: storeOptions.host,
		Port: storeOptions.port,
	}
	if storeOptions.apiKey != "" {
		config.APIKey = storeOptions.apiKey
	}
	client, err := qdrant.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	idx := &Index{
		client:  client,
		options: storeOptions,
		logger:  logger,
	}
	if err := idx.ensureCollection(context.Background()); err != nil {
		return nil, err
	}

	count, err := idx.Len(context.Background())
	if err != nil {
		return nil, err
	}
	idx.seq.Store(int64(count))

	logger.Info("Qdrant index ready", "points", count)
	return idx, nil
}

func (idx *Index) ensureCollection(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.options.collectionName)
	if err != nil {
		return fmt.Errorf("qdrant: collection check failed: %w", err)
	}
	if exists {
		return nil
	}
	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.options.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(idx.options.dimension),
					Distance: qdrant.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: collection creation failed: %w", err)
	}
	idx.logger.Info("Created collection", "dimension", idx.options.dimension)
	return nil
}

func (idx *Index) Add(ctx context.Context, vectors [][]float32, chunks []schema.Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors, %d chunks", vectorstores.ErrCountMismatch, len(vectors), len(chunks))
	}
	if len(vectors) == 0 {
		return nil
	}
	for i, vec := range vectors {
		if len(vec) != idx.options.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				vectorstores.ErrDimensionMismatch, i, len(vec), idx.options.dimension)
		}
	}

	points := make([]*qdrant.PointStruct, len(vectors))
	for i, vec := range vectors {
		seq := idx.seq.Add(1) - 1
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vec...),
			Payload: map[string]*qdrant.Value{
				payloadText:     qdrant.NewValueString(chunks[i].Text),
				payloadPage:     qdrant.NewValueInt(int64(chunks[i].Page)),
				payloadDocument: qdrant.NewValueString(chunks[i].Document),
				payloadSeq:      qdrant.NewValueInt(seq),
			},
		}
	}

	wait := true
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.options.collectionName,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	idx.logger.InfoContext(ctx, "Added points", "count", len(points))
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, k int, opts ...vectorstores.SearchOption) ([]schema.SearchResult, error) {
	if k < 1 {
		return nil, vectorstores.ErrInvalidK
	}
	if len(queryVector) != idx.options.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			vectorstores.ErrDimensionMismatch, len(queryVector), idx.options.dimension)
	}
	options := vectorstores.ParseSearchOptions(opts...)

	limit := uint64(k * overfetchFactor)
	points, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.options.collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		Filter:         documentFilter(options.Document),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if stat, ok := status.FromError(err); ok && stat.Code() == codes.NotFound {
			idx.logger.WarnContext(ctx, "Collection not found during search")
			return []schema.SearchResult{}, nil
		}
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]schema.SearchResult, 0, k)
	for _, point := range points {
		payload := point.GetPayload()
		results = append(results, schema.SearchResult{
			Text:     payload[payloadText].GetStringValue(),
			Distance: point.GetScore(),
			Page:     int(payload[payloadPage].GetIntegerValue()),
			Document: payload[payloadDocument].GetStringValue(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (idx *Index) Chunks(ctx context.Context, document string, limit int) ([]schema.Chunk, error) {
	type orderedChunk struct {
		seq   int64
		chunk schema.Chunk
	}
	var collected []orderedChunk

	batch := uint32(scrollBatchSize)
	var offset *qdrant.PointId
	for {
		points, err := idx.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: idx.options.collectionName,
			Filter:         documentFilter(document),
			Limit:          &batch,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
		}
		if len(points) == 0 {
			break
		}
		for _, point := range points {
			payload := point.GetPayload()
			collected = append(collected, orderedChunk{
				seq: payload[payloadSeq].GetIntegerValue(),
				chunk: schema.Chunk{
					Text:     payload[payloadText].GetStringValue(),
					Page:     int(payload[payloadPage].GetIntegerValue()),
					Document: payload[payloadDocument].GetStringValue(),
				},
			})
		}
		if len(points) < scrollBatchSize {
			break
		}
		offset = points[len(points)-1].GetId()
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })

	chunks := make([]schema.Chunk, 0, len(collected))
	for _, oc := range collected {
		chunks = append(chunks, oc.chunk)
		if limit > 0 && len(chunks) >= limit {
			break
		}
	}
	return chunks, nil
}

func (idx *Index) Len(ctx context.Context) (int, error) {
	exact := true
	count, err := idx.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: idx.options.collectionName,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(count), nil
}

// Reset drops and recreates the collection.
func (idx *Index) Reset(ctx context.Context) error {
	if err := idx.client.DeleteCollection(ctx, idx.options.collectionName); err != nil {
		if stat, ok := status.FromError(err); !ok || stat.Code() != codes.NotFound {
			return fmt.Errorf("qdrant: collection deletion failed: %w", err)
		}
	}
	idx.seq.Store(0)
	if err := idx.ensureCollection(ctx); err != nil {
		return err
	}
	idx.logger.InfoContext(ctx, "Index reset complete")
	return nil
}

func documentFilter(document string) *qdrant.Filter {
	if document == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadDocument, document),
		},
	}
}
