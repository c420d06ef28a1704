// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/issueops"
)

// Header names set by GitHub on every delivery.
const (
	EventHeader    = "X-GitHub-Event"
	DeliveryHeader = "X-GitHub-Delivery"
)

// maxPayloadSize is GitHub's documented webhook payload cap.
const maxPayloadSize = 25 << 20

// Dispatcher runs lifecycle operations for events and expiry sweeps.
type Dispatcher interface {
	Handle(ctx context.Context, event issueops.Event) error
	Expire(ctx context.Context) error
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Dispatcher Dispatcher
	Queue      *Queue

	// Secret is the webhook secret shared with GitHub. Required.
	Secret []byte

	// Deliveries bounds how many delivery IDs are remembered for
	// de-duplication. Defaults to 1024.
	Deliveries int

	Logger *slog.Logger
}

// Handler accepts webhook deliveries.
type Handler struct {
	dispatcher Dispatcher
	queue      *Queue
	secret     []byte
	deliveries *deliveries
	logger     *slog.Logger
}

type response struct {
	Status   string `json:"status"`
	Delivery string `json:"delivery,omitempty"`
	Action   string `json:"action,omitempty"`
	Error    string `json:"error,omitempty"`
	Pending  *int   `json:"pending,omitempty"`
}

// NewHandler creates a Handler.
func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Dispatcher == nil {
		return nil, errors.New("webhook: Dispatcher is required")
	}
	if config.Queue == nil {
		return nil, errors.New("webhook: Queue is required")
	}
	if len(config.Secret) == 0 {
		return nil, errors.New("webhook: Secret is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dispatcher: config.Dispatcher,
		queue:      config.Queue,
		secret:     config.Secret,
		deliveries: newDeliveries(config.Deliveries),
		logger:     logger,
	}, nil
}

// Router returns the HTTP routes: POST /webhook and GET /healthz.
func (handler *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(handler.logRequests)

	router.Post("/webhook", handler.receive)
	router.Get("/healthz", handler.health)
	return router
}

func (handler *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(wrapped, request)
		handler.logger.Debug("http request",
			"method", request.Method,
			"path", request.URL.Path,
			"status", wrapped.Status(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(request.Context()),
		)
	})
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(value)
}

func (handler *Handler) health(writer http.ResponseWriter, _ *http.Request) {
	pending := handler.queue.Pending()
	writeJSON(writer, http.StatusOK, response{Status: "ok", Pending: &pending})
}

func (handler *Handler) receive(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxPayloadSize))
	if err != nil {
		writeJSON(writer, http.StatusRequestEntityTooLarge, response{Status: "rejected", Error: "payload too large"})
		return
	}
	if err := VerifySignature(handler.secret, body, request.Header.Get(SignatureHeader)); err != nil {
		handler.logger.Warn("rejected webhook delivery", "error", err, "remote", request.RemoteAddr)
		writeJSON(writer, http.StatusUnauthorized, response{Status: "rejected", Error: "invalid signature"})
		return
	}

	name := request.Header.Get(EventHeader)
	delivery := request.Header.Get(DeliveryHeader)
	if delivery == "" {
		delivery = uuid.NewString()
	}
	logger := handler.logger.With("event", name, "delivery", delivery)

	switch name {
	case issueops.EventPing:
		writeJSON(writer, http.StatusOK, response{Status: "pong", Delivery: delivery})
		return
	case issueops.EventIssues, issueops.EventIssueComment:
	default:
		logger.Debug("ignoring event type")
		writeJSON(writer, http.StatusAccepted, response{Status: "ignored", Delivery: delivery})
		return
	}

	event, err := issueops.DecodeEvent(name, body)
	if err != nil {
		logger.Warn("undecodable payload", "error", err)
		writeJSON(writer, http.StatusBadRequest, response{Status: "rejected", Delivery: delivery, Error: "invalid payload"})
		return
	}
	action := issueops.Route(event)
	if action == classroom.ActionNone {
		writeJSON(writer, http.StatusAccepted, response{Status: "ignored", Delivery: delivery})
		return
	}

	if !handler.deliveries.add(delivery) {
		logger.Info("duplicate delivery")
		writeJSON(writer, http.StatusOK, response{Status: "duplicate", Delivery: delivery, Action: string(action)})
		return
	}
	err = handler.queue.Submit(Job{
		Kind: "event",
		ID:   delivery,
		Run: func(ctx context.Context) error {
			return handler.dispatcher.Handle(ctx, event)
		},
	})
	if err != nil {
		handler.deliveries.forget(delivery)
		logger.Error("dropping delivery", "error", err)
		writeJSON(writer, http.StatusServiceUnavailable, response{Status: "busy", Delivery: delivery, Error: err.Error()})
		return
	}

	logger.Info("queued delivery", "action", action, "issue", event.Issue.Number, "sender", event.Sender.Login)
	writeJSON(writer, http.StatusAccepted, response{Status: "queued", Delivery: delivery, Action: string(action)})
}
