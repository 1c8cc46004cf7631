package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animalcare-rag/internal/loader"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/repository"
)

func uploadFile(name, body string) UploadFile {
	return UploadFile{
		Filename:    name,
		Size:        int64(len(body)),
		ContentType: "application/octet-stream",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

type documentFixture struct {
	svc    *DocumentService
	docs   *repository.DocumentRepository
	index  *mockIndex
	loader *mockLoader
	tmpDir string
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	f := &documentFixture{
		docs:   repository.NewDocumentRepository(setupTestDB(t)),
		index:  newMockIndex(),
		loader: &mockLoader{},
		tmpDir: t.TempDir(),
	}
	f.svc = NewDocumentService(f.docs, f.index, f.loader, DocumentOptions{
		TempDir:        f.tmpDir,
		MaxUploadBytes: 1024,
		Concurrency:    2,
	})
	return f
}

func (f *documentFixture) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.tmpDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUpload_ListDeleteScenario(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)

	results := f.svc.Upload(ctx, []UploadFile{uploadFile("notes.pdf", "%PDF-1.4 fake")})
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)
	assert.Equal(t, "File uploaded and indexed successfully.", results[0].Message)
	id := results[0].FileID
	require.NotZero(t, id)
	assert.Equal(t, []string{"chunk one", "chunk two"}, f.index.chunksOf(id))

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.pdf", docs[0].Filename)
	assert.Equal(t, int64(len("%PDF-1.4 fake")), docs[0].FileSize)
	assert.Equal(t, model.DocumentStatusIndexed, docs[0].Status)

	require.NoError(t, f.svc.Delete(ctx, id))
	assert.Equal(t, "Successfully deleted document with file_id 1 from the system.", DeletedMessage(1))
	docs, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, f.index.chunksOf(id))
	assert.Empty(t, f.tempFiles(t))
}

func TestUpload_TempFileRemovedAndPassedToLoader(t *testing.T) {
	f := newDocumentFixture(t)
	var staged string
	f.loader.loadFn = func(_ context.Context, src loader.Source, ext string) (*loader.Document, error) {
		staged = src.Path
		b, err := os.ReadFile(src.Path)
		require.NoError(t, err)
		assert.Equal(t, "name,species\nBella,dog\n", string(b))
		assert.Equal(t, ".csv", ext)
		return &loader.Document{Text: "name: Bella", Chunks: []string{"name: Bella"}}, nil
	}

	_, err := f.svc.UploadOne(context.Background(), uploadFile("Animals.CSV", "name,species\nBella,dog\n"))
	require.NoError(t, err)
	assert.Equal(t, f.tmpDir, filepath.Dir(staged))
	_, statErr := os.Stat(staged)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpload_UnsupportedExtensionHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	opened := false
	file := uploadFile("virus.exe", "MZ")
	open := file.Open
	file.Open = func() (io.ReadCloser, error) {
		opened = true
		return open()
	}

	_, err := f.svc.UploadOne(ctx, file)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Contains(t, err.Error(), ".pdf, .docx, .html, .csv, .xlsx, .txt")
	assert.False(t, opened)
	assert.Empty(t, f.loader.paths)
	assert.Empty(t, f.index.indexed)

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUpload_IndexFailureRemovesRecord(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	f.index.indexFn = func(context.Context, uint, []string) error {
		return errors.New("collection unavailable")
	}

	results := f.svc.Upload(ctx, []UploadFile{uploadFile("notes.pdf", "x")})
	require.Len(t, results, 1)
	assert.Equal(t, "Failed to index file.", results[0].Error)
	assert.Zero(t, results[0].FileID)

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, f.tempFiles(t))
}

func TestUpload_PartialIndexWriteIsRolledBack(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	f.index.indexFn = func(_ context.Context, id uint, chunks []string) error {
		f.index.mu.Lock()
		f.index.indexed[id] = append(f.index.indexed[id], chunks...)
		f.index.mu.Unlock()
		return errors.New("flush collection failed")
	}

	results := f.svc.Upload(ctx, []UploadFile{uploadFile("notes.txt", "x")})
	require.Len(t, results, 1)
	assert.Equal(t, "Failed to index file.", results[0].Error)

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, f.index.chunksOf(1))
	assert.Equal(t, []uint{1}, f.index.deletes)
}

func TestUpload_LoadFailureRemovesRecord(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	f.loader.loadFn = func(context.Context, loader.Source, string) (*loader.Document, error) {
		return nil, loader.ErrNoText
	}

	_, err := f.svc.UploadOne(ctx, uploadFile("scan.pdf", "x"))
	assert.ErrorIs(t, err, ErrIndex)
	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUpload_BatchIsIndependent(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	f.loader.loadFn = func(_ context.Context, src loader.Source, _ string) (*loader.Document, error) {
		b, _ := os.ReadFile(src.Path)
		if string(b) == "broken" {
			return nil, errors.New("corrupt file")
		}
		return &loader.Document{Text: string(b), Chunks: []string{string(b)}}, nil
	}

	results := f.svc.Upload(ctx, []UploadFile{
		uploadFile("a.txt", "alpha"),
		uploadFile("b.exe", "beta"),
		uploadFile("c.docx", "broken"),
		uploadFile("d.html", strings.Repeat("x", 2048)),
		uploadFile("e.xlsx", "epsilon"),
	})
	require.Len(t, results, 5)

	assert.Equal(t, "a.txt", results[0].Filename)
	assert.NotZero(t, results[0].FileID)
	assert.Contains(t, results[1].Error, "unsupported file type")
	assert.Equal(t, "Failed to index file.", results[2].Error)
	assert.Contains(t, results[3].Error, "file too large")
	assert.NotZero(t, results[4].FileID)

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Empty(t, f.tempFiles(t))
}

func TestUpload_SizeLimitEnforcedOnContent(t *testing.T) {
	f := newDocumentFixture(t)
	file := uploadFile("big.txt", strings.Repeat("y", 2000))
	file.Size = 10

	_, err := f.svc.UploadOne(context.Background(), file)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, f.tempFiles(t))
}

type deleteFailingStore struct {
	*repository.DocumentRepository
}

func (deleteFailingStore) Delete(context.Context, uint) error {
	return errors.New("connection reset")
}

func TestDelete_TwoPhase(t *testing.T) {
	ctx := context.Background()

	t.Run("index failure leaves record", func(t *testing.T) {
		f := newDocumentFixture(t)
		id, err := f.svc.UploadOne(ctx, uploadFile("notes.pdf", "x"))
		require.NoError(t, err)
		f.index.deleteFn = func(context.Context, uint) error { return errors.New("milvus down") }

		err = f.svc.Delete(ctx, id)
		assert.ErrorIs(t, err, ErrIndexDelete)
		docs, err := f.svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.NotEmpty(t, f.index.chunksOf(id))
	})

	t.Run("record failure is inconsistent state", func(t *testing.T) {
		f := newDocumentFixture(t)
		id, err := f.svc.UploadOne(ctx, uploadFile("notes.pdf", "x"))
		require.NoError(t, err)

		svc := NewDocumentService(deleteFailingStore{f.docs}, f.index, f.loader, DocumentOptions{})
		err = svc.Delete(ctx, id)
		assert.ErrorIs(t, err, ErrInconsistentState)
		assert.Empty(t, f.index.chunksOf(id))
		docs, err := f.docs.List(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newDocumentFixture(t)
		assert.ErrorIs(t, f.svc.Delete(ctx, 42), ErrDocumentNotFound)
		assert.ErrorIs(t, f.svc.Delete(ctx, 0), ErrInvalidInput)
		assert.Empty(t, f.index.deletes)
	})
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)

	onDisk := filepath.Join(t.TempDir(), "kept.txt")
	require.NoError(t, os.WriteFile(onDisk, []byte("from disk"), 0o600))

	fromDisk := &model.Document{Filename: "kept.txt", Filepath: onDisk}
	fromContent := &model.Document{Filename: "gone.pdf", Filepath: "/nonexistent/upload-1.pdf"}
	noSource := &model.Document{Filename: "empty.pdf"}
	failing := &model.Document{Filename: "bad.txt", Filepath: "/nonexistent/bad.txt"}
	for _, d := range []*model.Document{fromDisk, fromContent, noSource, failing} {
		require.NoError(t, f.docs.Create(ctx, d))
	}
	require.NoError(t, f.docs.MarkIndexed(ctx, fromContent.ID, "stored text"))
	require.NoError(t, f.docs.MarkIndexed(ctx, failing.ID, "bad text"))

	f.loader.loadFn = func(_ context.Context, src loader.Source, _ string) (*loader.Document, error) {
		text := src.Content
		if src.Path != "" {
			b, err := os.ReadFile(src.Path)
			if err != nil {
				return nil, err
			}
			text = string(b)
		}
		if text == "bad text" {
			return nil, errors.New("cannot parse")
		}
		return &loader.Document{Text: text, Chunks: []string{text}}, nil
	}

	report := f.svc.Reindex(ctx)
	assert.Equal(t, ReindexReport{Indexed: 2, Skipped: 1, Failed: 1}, report)
	assert.Equal(t, []string{"from disk"}, f.index.chunksOf(fromDisk.ID))
	assert.Equal(t, []string{"stored text"}, f.index.chunksOf(fromContent.ID))
	assert.Empty(t, f.index.chunksOf(noSource.ID))

	stored, err := f.docs.GetByID(ctx, fromDisk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusIndexed, stored.Status)
	assert.Equal(t, "from disk", stored.Content)
}

func TestReindex_ClearsExistingChunks(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	id, err := f.svc.UploadOne(ctx, uploadFile("notes.txt", "x"))
	require.NoError(t, err)

	f.svc.Reindex(ctx)
	assert.Equal(t, []string{"chunk one", "chunk two"}, f.index.chunksOf(id))
}
