package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spapperi-configurator/internal/dto"
	"spapperi-configurator/internal/pkg/logger"
	"spapperi-configurator/pkg/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	relayModule = "Relay"

	backendChatPath         = "/api/chat"
	backendConversationPath = "/api/conversation/"

	opSendMessage  = "send_message"
	opFetchHistory = "fetch_history"
	opFetchExport  = "fetch_export"

	publishTimeout = 3 * time.Second
)

// IRelayService forwards visitor requests to the configurator backend. It never
// retries and never rewrites bodies; failures come back as *dto.RelayError.
type IRelayService interface {
	SendMessage(ctx context.Context, body []byte) (*dto.RelayResult, error)
	FetchHistory(ctx context.Context, conversationId string) (*dto.RelayResult, error)
	FetchExport(ctx context.Context, conversationId string) (*dto.RelayResult, error)
}

type relayService struct {
	resolveBaseURL func() string
	httpClient     *http.Client
	publisher      events.Publisher
	logger         logger.ILogger
	tracer         trace.Tracer
}

// NewRelayService builds the relay. resolveBaseURL is called on every request.
// publisher may be nil.
func NewRelayService(
	resolveBaseURL func() string,
	timeout time.Duration,
	publisher events.Publisher,
	log logger.ILogger,
) IRelayService {
	return &relayService{
		resolveBaseURL: resolveBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
		publisher:      publisher,
		logger:         log,
		tracer:         otel.Tracer("spapperi-configurator/relay"),
	}
}

func (s *relayService) SendMessage(ctx context.Context, body []byte) (*dto.RelayResult, error) {
	if !json.Valid(body) {
		return nil, &dto.RelayError{Status: http.StatusBadRequest, Message: dto.MsgInvalidRequestPayload}
	}

	var turn struct {
		ConversationId *string `json:"conversation_id"`
	}
	_ = json.Unmarshal(body, &turn)
	conversationId := ""
	if turn.ConversationId != nil {
		conversationId = *turn.ConversationId
	}

	result, err := s.forward(ctx, opSendMessage, http.MethodPost, backendChatPath, body, dto.MsgBackendUnavailable, true)
	if err != nil {
		s.publishFailure(ctx, opSendMessage, conversationId, err)
		return nil, err
	}

	var summary dto.RelayedTurnSummary
	_ = json.Unmarshal(result.Body, &summary)
	if summary.ConversationId == "" {
		summary.ConversationId = conversationId
	}

	s.publish(ctx, events.NewEvent(events.TypeTurnRelayed, map[string]interface{}{
		events.KeyConversationID:  summary.ConversationId,
		events.KeyPhase:           summary.CurrentPhase,
		events.KeyNewConversation: conversationId == "",
	}))
	// is_complete stays true on every later turn; only the report delivery completes
	if summary.ExportFile != "" {
		s.publish(ctx, events.NewEvent(events.TypeCompleted, map[string]interface{}{
			events.KeyConversationID: summary.ConversationId,
			events.KeyExportFile:     summary.ExportFile,
		}))
	}

	return result, nil
}

func (s *relayService) FetchHistory(ctx context.Context, conversationId string) (*dto.RelayResult, error) {
	path := backendConversationPath + url.PathEscape(conversationId) + "/history"
	result, err := s.forward(ctx, opFetchHistory, http.MethodGet, path, nil, dto.MsgConversationNotFound, true)
	if err != nil {
		s.publishFailure(ctx, opFetchHistory, conversationId, err)
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.TypeHistoryFetched, map[string]interface{}{
		events.KeyConversationID: conversationId,
	}))
	return result, nil
}

func (s *relayService) FetchExport(ctx context.Context, conversationId string) (*dto.RelayResult, error) {
	path := backendConversationPath + url.PathEscape(conversationId) + "/export"
	result, err := s.forward(ctx, opFetchExport, http.MethodGet, path, nil, dto.MsgConversationNotFound, false)
	if err != nil {
		s.publishFailure(ctx, opFetchExport, conversationId, err)
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.TypeExported, map[string]interface{}{
		events.KeyConversationID: conversationId,
	}))
	return result, nil
}

// forward performs the single hop. wantJSON rejects 2xx bodies that aren't JSON, the
// same way a failed decode would.
func (s *relayService) forward(
	ctx context.Context,
	op, method, path string,
	body []byte,
	rejectMessage string,
	wantJSON bool,
) (*dto.RelayResult, error) {
	target := strings.TrimRight(s.resolveBaseURL(), "/") + path

	ctx, span := s.tracer.Start(ctx, "relay."+op, trace.WithAttributes(
		attribute.String("relay.operation", op),
		attribute.String("relay.target", target),
	))
	defer span.End()

	s.logger.Info(relayModule, "Proxying request", map[string]interface{}{
		"operation": op,
		"target":    target,
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, s.internalError(span, op, fmt.Errorf("create request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, s.internalError(span, op, fmt.Errorf("backend request failed: %w", err))
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, s.internalError(span, op, fmt.Errorf("read response: %w", err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		s.logger.Error(relayModule, "Backend error", map[string]interface{}{
			"operation": op,
			"status":    res.StatusCode,
			"reason":    http.StatusText(res.StatusCode),
		})
		span.SetStatus(codes.Error, rejectMessage)
		return nil, &dto.RelayError{
			Status:  res.StatusCode,
			Message: rejectMessage,
			Cause:   fmt.Errorf("backend status %d", res.StatusCode),
		}
	}

	if wantJSON && !json.Valid(data) {
		return nil, s.internalError(span, op, fmt.Errorf("backend returned invalid JSON"))
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" && wantJSON {
		contentType = "application/json"
	}

	return &dto.RelayResult{
		Status:      res.StatusCode,
		ContentType: contentType,
		Body:        data,
	}, nil
}

func (s *relayService) internalError(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, dto.MsgInternalProxyError)
	s.logger.Error(relayModule, "Proxy error", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
	return &dto.RelayError{
		Status:  http.StatusInternalServerError,
		Message: dto.MsgInternalProxyError,
		Cause:   err,
	}
}

func (s *relayService) publishFailure(ctx context.Context, op, conversationId string, err error) {
	status := http.StatusInternalServerError
	if relayErr, ok := err.(*dto.RelayError); ok {
		status = relayErr.Status
	}
	s.publish(ctx, events.NewEvent(events.TypeBackendFailed, map[string]interface{}{
		events.KeyOperation:      op,
		events.KeyConversationID: conversationId,
		events.KeyStatus:         status,
	}))
}

// publish is fire-and-forget: the visitor's response never waits on the event bus.
func (s *relayService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	go func() {
		defer cancel()
		if err := s.publisher.Publish(pubCtx, event); err != nil {
			s.logger.Warn(relayModule, "Failed to publish funnel event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}
