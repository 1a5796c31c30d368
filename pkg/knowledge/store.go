package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"CarelineGolang/internal/entity"

	chromem "github.com/philippgille/chromem-go"
	"github.com/sirupsen/logrus"
)

const collectionName = "careline_knowledge"

// SearchResult is a single semantic-search hit.
type SearchResult struct {
	ID       string
	Content  string
	Type     string
	Priority string
	Score    float32
}

type IKnowledgeStore interface {
	Upsert(ctx context.Context, doc entity.KnowledgeDocument) error
	Query(ctx context.Context, query string, k int, filters map[string]string) ([]SearchResult, error)
	Count() int
}

// Store wraps chromem-go with disk persistence. The embedding function is
// injected so deployments can point it at any OpenAI-compatible endpoint
// and tests can supply a deterministic one.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
	log     *logrus.Logger
}

func New(dataDir string, embedFn chromem.EmbeddingFunc, log *logrus.Logger) (*Store, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}

	return &Store{db: db, embedFn: embedFn, log: log}, nil
}

// NewEmbeddingFuncFromEnv builds the default embedding function from
// EMBEDDINGS_BASE_URL / EMBEDDINGS_API_KEY / EMBEDDINGS_MODEL. Any
// OpenAI-compatible endpoint works.
func NewEmbeddingFuncFromEnv() chromem.EmbeddingFunc {
	baseURL := os.Getenv("EMBEDDINGS_BASE_URL")
	apiKey := os.Getenv("EMBEDDINGS_API_KEY")
	model := os.Getenv("EMBEDDINGS_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI3Small)
	}
	normalized := true
	return chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, &normalized)
}

func (s *Store) collection() (*chromem.Collection, error) {
	col := s.db.GetCollection(collectionName, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(collectionName, nil, s.embedFn)
		if err != nil {
			return nil, fmt.Errorf("create collection: %w", err)
		}
	}
	return col, nil
}

func (s *Store) Upsert(ctx context.Context, doc entity.KnowledgeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection()
	if err != nil {
		return err
	}

	metadata := map[string]string{
		"type":     doc.Type,
		"priority": doc.Priority,
	}
	for k, v := range doc.Metadata {
		metadata[k] = v
	}

	return col.AddDocument(ctx, chromem.Document{
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: metadata,
	})
}

func (s *Store) Query(ctx context.Context, query string, k int, filters map[string]string) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result

	// chromem sometimes rejects nResults at the document-count boundary
	// despite the Count check. Step down k if it complains.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, filters, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Type:     r.Metadata["type"],
			Priority: r.Metadata["priority"],
			Score:    r.Similarity,
		})
	}
	return out, nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection()
	if err != nil {
		s.log.WithField("error", err.Error()).Error("Failed to open knowledge collection")
		return 0
	}
	return col.Count()
}
