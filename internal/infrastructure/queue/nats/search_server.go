package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const searchQueueGroup = "search-workers"

// RequestObserver is notified around every served request.
type RequestObserver interface {
	StartRequest()
	FinishRequest(duration time.Duration, err error)
}

// SearchServer answers search requests published on subject. Instances
// sharing the subject form one queue group so each request is served once.
// Up to concurrency requests run at a time; further messages wait in the
// subscription's pending buffer.
type SearchServer struct {
	conn     *nats.Conn
	subject  string
	search   ports.SearchService
	timeout  time.Duration
	observer RequestObserver
	logger   *slog.Logger

	slots    chan struct{}
	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

var errShuttingDown = errors.New("search worker is shutting down")

func NewSearchServer(
	conn *nats.Conn,
	subject string,
	search ports.SearchService,
	timeout time.Duration,
	concurrency int,
	observer RequestObserver,
	logger *slog.Logger,
) *SearchServer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchServer{
		conn:     conn,
		subject:  subject,
		search:   search,
		timeout:  timeout,
		observer: observer,
		logger:   logger,
		slots:    make(chan struct{}, concurrency),
	}
}

// Serve blocks until ctx is done, then drains the subscription and waits for
// in-flight requests to be answered.
func (s *SearchServer) Serve(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.subject, searchQueueGroup, func(msg *nats.Msg) {
		if msg.Reply == "" {
			s.dispatch(ctx, msg.Data, nil)
			return
		}
		s.dispatch(ctx, msg.Data, msg.Respond)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	s.logger.Info("search_worker_subscribed", "subject", s.subject, "queue", searchQueueGroup, "concurrency", cap(s.slots))

	<-ctx.Done()
	drainErr := sub.Drain()
	s.shutdown()
	if drainErr != nil {
		return fmt.Errorf("nats drain subscription: %w", drainErr)
	}
	if err := s.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// dispatch runs one request on a free slot, blocking while all slots are
// busy. Once ctx is done the request is answered with an unavailable error
// instead. A nil respond discards the reply.
func (s *SearchServer) dispatch(ctx context.Context, data []byte, respond func([]byte) error) {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		s.reject(respond)
		return
	}

	s.mu.Lock()
	if s.closing || ctx.Err() != nil {
		s.mu.Unlock()
		<-s.slots
		s.reject(respond)
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	// Accepted requests finish even when shutdown starts mid-search.
	workCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			<-s.slots
			s.inflight.Done()
		}()
		s.respond(respond, s.handle(workCtx, data))
	}()
}

// shutdown stops accepting requests and waits for accepted ones.
func (s *SearchServer) shutdown() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.inflight.Wait()
}

func (s *SearchServer) reject(respond func([]byte) error) {
	body, _ := json.Marshal(replyError(domain.WrapError(domain.ErrAdapterUnavailable, "search worker", errShuttingDown)))
	s.respond(respond, body)
}

func (s *SearchServer) respond(respond func([]byte) error, body []byte) {
	if respond == nil {
		return
	}
	if err := respond(body); err != nil {
		s.logger.Error("nats_respond_failed", "subject", s.subject, "error", err)
	}
}

func (s *SearchServer) handle(ctx context.Context, data []byte) []byte {
	start := time.Now()
	if s.observer != nil {
		s.observer.StartRequest()
	}

	reply, err := s.run(ctx, data)
	if err != nil {
		reply = replyError(err)
		s.logger.Warn("search_request_failed", "subject", s.subject, "error", err)
	}
	if s.observer != nil {
		s.observer.FinishRequest(time.Since(start), err)
	}

	body, mErr := json.Marshal(reply)
	if mErr != nil {
		body, _ = json.Marshal(replyError(mErr))
	}
	return body
}

func (s *SearchServer) run(ctx context.Context, data []byte) (SearchReply, error) {
	var req SearchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return SearchReply{}, domain.WrapError(domain.ErrInvalidInput, "decode search request", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome, err := s.search.Search(searchCtx, req.Query, req.Limit)
	if err != nil {
		return SearchReply{}, err
	}
	return SearchReply{Outcome: outcome}, nil
}
