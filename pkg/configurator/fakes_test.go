package configurator

import (
	"context"
	"errors"
	"sync"
)

var errBackendDown = errors.New("backend down")

type replyFunc func(req ChatRequest) (*ChatResponse, error)

// fakeBackend answers turns from a queue and serves a fixed history.
type fakeBackend struct {
	mu       sync.Mutex
	requests []ChatRequest
	replies  []replyFunc

	history      *HistoryResponse
	historyErr   error
	historyCalls int

	// gate, when set, holds every SendMessage until it is closed or ctx expires
	gate chan struct{}
}

func (f *fakeBackend) enqueue(replies ...replyFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

func (f *fakeBackend) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	f.mu.Lock()
	if req.ConversationID != nil {
		id := *req.ConversationID
		req.ConversationID = &id
	}
	f.requests = append(f.requests, req)
	var next replyFunc
	if len(f.replies) > 0 {
		next = f.replies[0]
		f.replies = f.replies[1:]
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if next == nil {
		return &ChatResponse{Response: "ok", ConversationID: "conv-1"}, nil
	}
	return next(req)
}

func (f *fakeBackend) FetchHistory(_ context.Context, conversationID string) (*HistoryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.history, f.historyErr
}

func (f *fakeBackend) ExportURL(conversationID string) string {
	return "http://relay.test/api/conversation/" + conversationID + "/export"
}

func (f *fakeBackend) sent() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChatRequest(nil), f.requests...)
}

func textReply(body, conversationID string) replyFunc {
	return func(ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{Response: body, ConversationID: conversationID}, nil
	}
}

func choiceReply(body, conversationID, uiType string, options ...string) replyFunc {
	return func(ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{
			Response:       body,
			ConversationID: conversationID,
			UIType:         uiType,
			Options:        options,
		}, nil
	}
}

func failedReply(err error) replyFunc {
	return func(ChatRequest) (*ChatResponse, error) {
		return nil, err
	}
}

// fakeStore records every write so tests can assert on persistence.
type fakeStore struct {
	mu      sync.Mutex
	id      string
	loadErr error
	saves   []string
	clears  int
}

func (s *fakeStore) Load(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", false, s.loadErr
	}
	return s.id, s.id != "", nil
}

func (s *fakeStore) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.saves = append(s.saves, id)
	return nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.clears++
	return nil
}

func (s *fakeStore) saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saves...)
}

func strPtr(s string) *string {
	return &s
}
