package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"animalcare-rag/internal/loader"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/vectorindex"
)

const (
	msgUploaded    = "File uploaded and indexed successfully."
	msgIndexFailed = "Failed to index file."
	msgDeleted     = "Successfully deleted document with file_id %d from the system."

	cleanupTimeout = 5 * time.Second
)

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	MarkIndexed(ctx context.Context, id uint, content string) error
	List(ctx context.Context) ([]model.Document, error)
	ListWithContent(ctx context.Context) ([]model.Document, error)
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	Delete(ctx context.Context, id uint) error
}

type DocumentLoader interface {
	Load(ctx context.Context, src loader.Source, ext string) (*loader.Document, error)
}

// UploadFile is one file of an upload request. Open is called at most once.
type UploadFile struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type UploadResult struct {
	Filename string `json:"filename"`
	FileID   uint   `json:"file_id,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

type DocumentOptions struct {
	AllowedExtensions []string
	TempDir           string
	MaxUploadBytes    int64
	Concurrency       int
}

// ReindexReport counts the outcome of a reindex pass.
type ReindexReport struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// DocumentService keeps the record store and the vector index in step for uploads and deletes.
type DocumentService struct {
	docs    DocumentStore
	index   vectorindex.Index
	loader  DocumentLoader
	opts    DocumentOptions
	allowed map[string]bool
}

func NewDocumentService(docs DocumentStore, index vectorindex.Index, ld DocumentLoader, opts DocumentOptions) *DocumentService {
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = []string{".pdf", ".docx", ".html", ".csv", ".xlsx", ".txt"}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	allowed := make(map[string]bool, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &DocumentService{docs: docs, index: index, loader: ld, opts: opts, allowed: allowed}
}

// Upload ingests files independently and returns one result per file, in input order.
func (s *DocumentService) Upload(ctx context.Context, files []UploadFile) []UploadResult {
	results := make([]UploadResult, len(files))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for i := range files {
		g.Go(func() error {
			f := files[i]
			res := UploadResult{Filename: f.Filename}
			id, err := s.UploadOne(ctx, f)
			switch {
			case err == nil:
				res.FileID = id
				res.Message = msgUploaded
			case errors.Is(err, ErrUnsupportedFileType), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrInvalidInput):
				res.Error = err.Error()
			default:
				res.Error = msgIndexFailed
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// UploadOne validates, stages, records and indexes a single file. On indexing failure the
// record is removed again so no document is listed without chunks.
func (s *DocumentService) UploadOne(ctx context.Context, f UploadFile) (uint, error) {
	name := filepath.Base(strings.TrimSpace(f.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return 0, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !s.allowed[ext] {
		return 0, fmt.Errorf("%w. Allowed types are: %s", ErrUnsupportedFileType, strings.Join(s.opts.AllowedExtensions, ", "))
	}
	if s.opts.MaxUploadBytes > 0 && f.Size > s.opts.MaxUploadBytes {
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.opts.MaxUploadBytes)
	}

	tmpPath, size, err := s.stage(f, ext)
	if tmpPath != "" {
		defer os.Remove(tmpPath)
	}
	if err != nil {
		return 0, err
	}

	doc := &model.Document{
		Filename:    name,
		FileSize:    size,
		ContentType: f.ContentType,
		Filepath:    tmpPath,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return 0, classify(ErrStore, err)
	}

	loaded, err := s.ingest(ctx, doc.ID, tmpPath, ext)
	if err != nil {
		s.compensateRecord(ctx, doc.ID)
		logger.Warnw("document ingest failed", "document_id", doc.ID, "filename", name, "error", err)
		return 0, err
	}

	logger.Infow("document indexed", "document_id", doc.ID, "filename", name, "chunks", len(loaded.Chunks))
	return doc.ID, nil
}

// ingest loads the staged file, writes its chunks and marks the record indexed. A failed
// index write may still leave rows behind, so chunks are deleted on every failure after Load.
func (s *DocumentService) ingest(ctx context.Context, id uint, path, ext string) (*loader.Document, error) {
	loaded, err := s.loader.Load(ctx, loader.Source{Path: path}, ext)
	if err != nil {
		return nil, classify(ErrIndex, err)
	}
	if err := s.index.Index(ctx, id, loaded.Chunks); err != nil {
		s.compensateIndex(ctx, id)
		return nil, classify(ErrIndex, err)
	}
	if err := s.docs.MarkIndexed(ctx, id, loaded.Text); err != nil {
		s.compensateIndex(ctx, id)
		return nil, classify(ErrStore, err)
	}
	return loaded, nil
}

// stage copies the upload into a request-scoped temp file. The caller removes the returned path.
func (s *DocumentService) stage(f UploadFile, ext string) (string, int64, error) {
	if f.Open == nil {
		return "", 0, fmt.Errorf("%w: file content is missing", ErrInvalidInput)
	}
	src, err := f.Open()
	if err != nil {
		return "", 0, fmt.Errorf("%w: open upload: %w", ErrInvalidInput, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.opts.TempDir, "upload-*"+ext)
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp file: %w", ErrStore, err)
	}
	path := tmp.Name()

	var r io.Reader = src
	if s.opts.MaxUploadBytes > 0 {
		r = io.LimitReader(src, s.opts.MaxUploadBytes+1)
	}
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	switch {
	case copyErr != nil:
		return path, 0, fmt.Errorf("%w: write temp file: %w", ErrStore, copyErr)
	case closeErr != nil:
		return path, 0, fmt.Errorf("%w: close temp file: %w", ErrStore, closeErr)
	case s.opts.MaxUploadBytes > 0 && n > s.opts.MaxUploadBytes:
		return path, 0, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.opts.MaxUploadBytes)
	}
	return path, n, nil
}

func (s *DocumentService) compensateIndex(ctx context.Context, id uint) {
	cctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := s.index.Delete(cctx, id); err != nil {
		logger.Errorw("rollback indexed chunks failed", "document_id", id, "error", err)
	}
}

func (s *DocumentService) compensateRecord(ctx context.Context, id uint) {
	cctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := s.docs.Delete(cctx, id); err != nil {
		logger.Errorw("rollback document record failed", "document_id", id, "error", err)
	}
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, classify(ErrStore, err)
	}
	return docs, nil
}

// Delete removes chunks first and the record only after that succeeded.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: file_id is required", ErrInvalidInput)
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return classify(ErrStore, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: file_id %d", ErrDocumentNotFound, id)
	}

	if err := s.index.Delete(ctx, id); err != nil {
		logger.Warnw("delete document chunks failed", "document_id", id, "error", err)
		return fmt.Errorf("%w: file_id %d: %w", ErrIndexDelete, id, err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		logger.Errorw("document record left without chunks", "document_id", id, "error", err)
		return fmt.Errorf("%w: file_id %d: %w", ErrInconsistentState, id, err)
	}

	logger.Infow("document deleted", "document_id", id, "filename", doc.Filename)
	return nil
}

// DeletedMessage is the confirmation returned to callers after Delete succeeds.
func DeletedMessage(id uint) string {
	return fmt.Sprintf(msgDeleted, id)
}

// Reindex rebuilds the chunks of every document from its file, or from its stored text when the
// file is gone. Failures are logged per document and never returned.
func (s *DocumentService) Reindex(ctx context.Context) ReindexReport {
	var report ReindexReport
	docs, err := s.docs.ListWithContent(ctx)
	if err != nil {
		logger.Errorw("reindex list documents failed", "error", err)
		return report
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for i := range docs {
		g.Go(func() error {
			outcome := s.reindexOne(ctx, &docs[i])
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case reindexed:
				report.Indexed++
			case reindexSkipped:
				report.Skipped++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Infow("reindex finished", "indexed", report.Indexed, "skipped", report.Skipped, "failed", report.Failed)
	return report
}

type reindexOutcome int

const (
	reindexed reindexOutcome = iota
	reindexSkipped
	reindexFailed
)

func (s *DocumentService) reindexOne(ctx context.Context, doc *model.Document) reindexOutcome {
	var src loader.Source
	switch {
	case doc.Filepath != "" && fileExists(doc.Filepath):
		src.Path = doc.Filepath
	case doc.Content != "":
		src.Content = doc.Content
	default:
		logger.Warnw("reindex skipped document without source", "document_id", doc.ID, "filename", doc.Filename)
		return reindexSkipped
	}

	loaded, err := s.loader.Load(ctx, src, filepath.Ext(doc.Filename))
	if err != nil {
		logger.Warnw("reindex load failed", "document_id", doc.ID, "error", err)
		return reindexFailed
	}
	if err := s.index.Delete(ctx, doc.ID); err != nil {
		logger.Warnw("reindex clear chunks failed", "document_id", doc.ID, "error", err)
		return reindexFailed
	}
	if err := s.index.Index(ctx, doc.ID, loaded.Chunks); err != nil {
		logger.Warnw("reindex index failed", "document_id", doc.ID, "error", err)
		return reindexFailed
	}
	if err := s.docs.MarkIndexed(ctx, doc.ID, loaded.Text); err != nil {
		logger.Warnw("reindex mark indexed failed", "document_id", doc.ID, "error", err)
		return reindexFailed
	}
	return reindexed
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func cleanupContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), cleanupTimeout)
}
