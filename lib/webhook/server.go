// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/cron"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Address is the TCP listen address, for example "127.0.0.1:8080"
	// or ":0" for an OS-assigned port.
	Address string

	Dispatcher Dispatcher
	Secret     []byte

	// Schedule triggers expiry sweeps. Nil disables them.
	Schedule *cron.Schedule

	// QueueSize bounds pending jobs. Defaults to 64.
	QueueSize int

	// ShutdownTimeout bounds the wait for in-flight requests after the
	// context ends. Defaults to 10s.
	ShutdownTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Service runs the HTTP listener, the job queue, and the expiry
// schedule together.
type Service struct {
	address         string
	handler         *Handler
	queue           *Queue
	dispatcher      Dispatcher
	schedule        *cron.Schedule
	shutdownTimeout time.Duration
	clock           clock.Clock
	logger          *slog.Logger

	ready chan struct{}
	addr  net.Addr
}

// NewService creates a Service.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Address == "" {
		return nil, errors.New("webhook: Address is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	queue := NewQueue(config.QueueSize, logger)
	handler, err := NewHandler(HandlerConfig{
		Dispatcher: config.Dispatcher,
		Queue:      queue,
		Secret:     config.Secret,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		address:         config.Address,
		handler:         handler,
		queue:           queue,
		dispatcher:      config.Dispatcher,
		schedule:        config.Schedule,
		shutdownTimeout: timeout,
		clock:           clk,
		logger:          logger,
		ready:           make(chan struct{}),
	}, nil
}

// Ready is closed once the listener is bound.
func (service *Service) Ready() <-chan struct{} {
	return service.ready
}

// Addr returns the bound address. Valid after Ready is closed.
func (service *Service) Addr() net.Addr {
	return service.addr
}

// Run serves until ctx is cancelled, then drains in-flight requests
// and stops the queue.
func (service *Service) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", service.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", service.address, err)
	}
	service.addr = listener.Addr()
	close(service.ready)

	server := &http.Server{
		Handler:           service.handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		service.queue.Run(workerCtx)
	}()
	if service.schedule != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			service.runSchedule(workerCtx)
		}()
	}

	service.logger.Info("webhook service listening", "address", service.addr.String())
	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		service.logger.Info("webhook service shutting down")
	case serveErr = <-serveDone:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), service.shutdownTimeout)
	defer cancel()
	shutdownErr := server.Shutdown(shutdownCtx)

	stopWorkers()
	workers.Wait()

	if serveErr != nil {
		return serveErr
	}
	if shutdownErr != nil {
		return fmt.Errorf("http server shutdown: %w", shutdownErr)
	}
	service.logger.Info("webhook service stopped")
	return nil
}

func (service *Service) runSchedule(ctx context.Context) {
	service.logger.Info("expiry scheduled", "schedule", service.schedule.String())
	err := cron.Run(ctx, service.clock, *service.schedule, func(_ context.Context, at time.Time) {
		id := uuid.NewString()
		err := service.queue.Submit(Job{Kind: "expire", ID: id, Run: service.dispatcher.Expire})
		if err != nil {
			service.logger.Error("skipping scheduled expiry", "at", at, "error", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		service.logger.Error("expiry schedule stopped", "error", err)
	}
}
