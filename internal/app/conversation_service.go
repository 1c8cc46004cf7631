package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"animalcare-rag/internal/analytics"
	"animalcare-rag/internal/cache"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/vectorindex"
)

const (
	defaultRequestTimeout = 60 * time.Second
	persistTimeout        = 5 * time.Second
)

type Retriever interface {
	RewriteAndRetrieve(ctx context.Context, question string, history []model.ChatTurn, modelName model.ModelName) ([]vectorindex.Chunk, string, error)
}

type Composer interface {
	Compose(ctx context.Context, question string, history []model.ChatTurn, chunks []vectorindex.Chunk, modelName model.ModelName) (string, error)
}

type TurnStore interface {
	Create(ctx context.Context, turn *model.ChatTurn) error
	ListBySessionID(ctx context.Context, sessionID string) ([]model.ChatTurn, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.ChatTurn, bool, error)
	SetHistory(ctx context.Context, sessionID string, turns []model.ChatTurn) error
	DeleteHistory(ctx context.Context, sessionID string) error
}

type EventDispatcher interface {
	Dispatch(ev analytics.TurnEvent)
}

type ChatInput struct {
	Question  string
	SessionID string
	Model     string
}

type ChatResult struct {
	Answer    string          `json:"answer"`
	SessionID string          `json:"session_id"`
	Model     model.ModelName `json:"model"`
}

type ConversationOptions struct {
	DefaultModel   model.ModelName
	RequestTimeout time.Duration
}

// ConversationService runs one chat turn: history, retrieval, composition, persistence, analytics.
type ConversationService struct {
	turns      TurnStore
	history    HistoryCache
	locker     cache.SessionLocker
	retriever  Retriever
	composer   Composer
	dispatcher EventDispatcher
	opts       ConversationOptions
	now        func() time.Time
}

// NewConversationService accepts a nil history cache; locker defaults to an in-process one.
func NewConversationService(
	turns TurnStore,
	history HistoryCache,
	locker cache.SessionLocker,
	retriever Retriever,
	composer Composer,
	dispatcher EventDispatcher,
	opts ConversationOptions,
) *ConversationService {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	if dispatcher == nil {
		dispatcher = analytics.NewDispatcher(analytics.NopSink{}, 0)
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = model.DefaultModel
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &ConversationService{
		turns:      turns,
		history:    history,
		locker:     locker,
		retriever:  retriever,
		composer:   composer,
		dispatcher: dispatcher,
		opts:       opts,
		now:        time.Now,
	}
}

func (s *ConversationService) Handle(ctx context.Context, in ChatInput) (*ChatResult, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	modelName := s.opts.DefaultModel
	if raw := strings.TrimSpace(in.Model); raw != "" {
		parsed, err := model.ParseModelName(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		modelName = parsed
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger.Infow("chat request", "session_id", sessionID, "model", modelName)

	reqCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(reqCtx, sessionID)
	if err != nil {
		return nil, classify(ErrStore, err)
	}
	defer unlock()

	history, err := s.loadHistory(reqCtx, sessionID)
	if err != nil {
		return nil, classify(ErrStore, err)
	}

	chunks, query, err := s.retriever.RewriteAndRetrieve(reqCtx, question, history, modelName)
	if err != nil {
		return nil, timeoutOr(err)
	}
	answer, err := s.composer.Compose(reqCtx, question, history, chunks, modelName)
	if err != nil {
		return nil, timeoutOr(err)
	}
	logger.Infow("answer produced", "session_id", sessionID, "query", query, "chunks", len(chunks), "answer_len", len(answer))

	turn := model.ChatTurn{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Model:     modelName,
		CreatedAt: s.now(),
	}
	s.persistTurn(ctx, history, &turn)

	s.dispatcher.Dispatch(analytics.TurnEvent{
		Timestamp: turn.CreatedAt,
		SessionID: sessionID,
		Model:     modelName,
		Question:  question,
		Answer:    answer,
	})

	return &ChatResult{Answer: answer, SessionID: sessionID, Model: modelName}, nil
}

// History returns the ordered turns of a session.
func (s *ConversationService) History(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	turns, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, classify(ErrStore, err)
	}
	return turns, nil
}

func (s *ConversationService) loadHistory(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	if s.history != nil {
		cached, hit, err := s.history.GetHistory(ctx, sessionID)
		if err == nil && hit {
			return cached, nil
		}
		if err != nil {
			logger.Warnw("history cache read failed", "session_id", sessionID, "error", err)
		}
	}

	turns, err := s.turns.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		if err := s.history.SetHistory(ctx, sessionID, turns); err != nil {
			logger.Warnw("history cache write failed", "session_id", sessionID, "error", err)
		}
	}
	return turns, nil
}

// persistTurn runs on a context detached from the request deadline so an answer that
// arrived just in time is still recorded. A failed write is logged; the answer stands.
func (s *ConversationService) persistTurn(parent context.Context, history []model.ChatTurn, turn *model.ChatTurn) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), persistTimeout)
	defer cancel()

	if err := s.turns.Create(ctx, turn); err != nil {
		logger.Errorw("persist chat turn failed", "session_id", turn.SessionID, "error", err)
		if s.history != nil {
			_ = s.history.DeleteHistory(ctx, turn.SessionID)
		}
		return
	}
	if s.history != nil {
		updated := make([]model.ChatTurn, 0, len(history)+1)
		updated = append(updated, history...)
		updated = append(updated, *turn)
		if err := s.history.SetHistory(ctx, turn.SessionID, updated); err != nil {
			logger.Warnw("history cache write failed", "session_id", turn.SessionID, "error", err)
			_ = s.history.DeleteHistory(ctx, turn.SessionID)
		}
	}
}

func timeoutOr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrRequestTimeout) {
		return fmt.Errorf("%w: %w", ErrRequestTimeout, err)
	}
	return err
}
