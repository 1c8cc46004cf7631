package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"animalcare-rag/internal/ai"
	"animalcare-rag/internal/analytics"
	"animalcare-rag/internal/loader"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/platform/database"
	"animalcare-rag/internal/vectorindex"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type mockCompleter struct {
	mu         sync.Mutex
	calls      [][]ai.ChatMessage
	models     []string
	completeFn func(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.models = append(m.models, cfg.Model)
	m.mu.Unlock()
	return m.completeFn(ctx, cfg, messages)
}

type mockIndex struct {
	mu       sync.Mutex
	indexed  map[uint][]string
	searches []string
	deletes  []uint
	indexFn  func(ctx context.Context, documentID uint, chunks []string) error
	deleteFn func(ctx context.Context, documentID uint) error
	searchFn func(ctx context.Context, query string, k int) ([]vectorindex.Chunk, error)
}

func newMockIndex() *mockIndex {
	return &mockIndex{indexed: make(map[uint][]string)}
}

func (m *mockIndex) Index(ctx context.Context, documentID uint, chunks []string) error {
	if m.indexFn != nil {
		if err := m.indexFn(ctx, documentID, chunks); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed[documentID] = append(m.indexed[documentID], chunks...)
	return nil
}

func (m *mockIndex) Delete(ctx context.Context, documentID uint) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(ctx, documentID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, documentID)
	delete(m.indexed, documentID)
	return nil
}

func (m *mockIndex) Search(ctx context.Context, query string, k int) ([]vectorindex.Chunk, error) {
	m.mu.Lock()
	m.searches = append(m.searches, query)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, query, k)
	}
	return nil, nil
}

func (m *mockIndex) chunksOf(id uint) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexed[id]
}

type mockLoader struct {
	mu     sync.Mutex
	paths  []string
	loadFn func(ctx context.Context, src loader.Source, ext string) (*loader.Document, error)
}

func (m *mockLoader) Load(ctx context.Context, src loader.Source, ext string) (*loader.Document, error) {
	m.mu.Lock()
	m.paths = append(m.paths, src.Path)
	m.mu.Unlock()
	if m.loadFn != nil {
		return m.loadFn(ctx, src, ext)
	}
	return &loader.Document{Text: "chunk one chunk two", Chunks: []string{"chunk one", "chunk two"}}, nil
}

type mockRetriever struct {
	mu         sync.Mutex
	histories  [][]model.ChatTurn
	retrieveFn func(ctx context.Context, question string, history []model.ChatTurn) ([]vectorindex.Chunk, string, error)
}

func (m *mockRetriever) RewriteAndRetrieve(ctx context.Context, question string, history []model.ChatTurn, _ model.ModelName) ([]vectorindex.Chunk, string, error) {
	m.mu.Lock()
	m.histories = append(m.histories, append([]model.ChatTurn(nil), history...))
	m.mu.Unlock()
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, question, history)
	}
	return []vectorindex.Chunk{{ID: 1, Content: "fever guide"}}, question, nil
}

type mockComposer struct {
	composeFn func(ctx context.Context, question string, history []model.ChatTurn, chunks []vectorindex.Chunk) (string, error)
}

func (m *mockComposer) Compose(ctx context.Context, question string, history []model.ChatTurn, chunks []vectorindex.Chunk, _ model.ModelName) (string, error) {
	if m.composeFn != nil {
		return m.composeFn(ctx, question, history, chunks)
	}
	return "answer to: " + question, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []analytics.TurnEvent
}

func (d *recordingDispatcher) Dispatch(ev analytics.TurnEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}
