// Package natsingest accepts match telemetry over NATS. Each message is
// ingested synchronously and answered with the ingestion status when the
// publisher asked for a reply.
package natsingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/pkg/logger"
	"github.com/okian/royale/pkg/metrics"
)

const (
	defaultSubject = "royale.telemetry"
	defaultQueue   = "royale"
	defaultTimeout = 30 * time.Second
)

// Ingestor commits one match telemetry against a schedule.
type Ingestor interface {
	IngestMatch(ctx context.Context, tel model.Telemetry, scheduleID string) model.IngestStatus
}

// Request is the message body published on the ingestion subject.
type Request struct {
	ScheduleID string          `json:"schedule_id"`
	Telemetry  json.RawMessage `json:"telemetry"`
}

// Subscriber queue-subscribes to the ingestion subject so several server
// instances share the load.
type Subscriber struct {
	conn     *nats.Conn
	ingestor Ingestor
	subject  string
	queue    string
	timeout  time.Duration
	logger   logger.Logger

	mu  sync.Mutex
	sub *nats.Subscription
	ctx context.Context
}

// Connect dials a NATS server with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	l := logger.Get().Named("nats")
	nc, err := nats.Connect(url,
		nats.Name("royale"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info(context.Background(), "nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("natsingest.connect: %w", err)
	}
	return nc, nil
}

// New creates a subscriber over an established connection.
func New(conn *nats.Conn, ingestor Ingestor, opts ...Option) *Subscriber {
	s := &Subscriber{
		conn:     conn,
		ingestor: ingestor,
		subject:  defaultSubject,
		queue:    defaultQueue,
		timeout:  defaultTimeout,
		logger:   logger.Get().Named("natsingest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes. Messages are handled until Stop is called or ctx ends.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return errors.New("natsingest: already started")
	}
	s.ctx = ctx
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, s.handle)
	if err != nil {
		return fmt.Errorf("natsingest.start: %w", err)
	}
	s.sub = sub
	s.logger.Info(ctx, "subscribed",
		logger.String("subject", s.subject),
		logger.String("queue", s.queue),
	)
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	if err != nil {
		return fmt.Errorf("natsingest.stop: %w", err)
	}
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	st := s.process(ctx, msg.Data)
	metrics.RecordNATSMessage(st.Status)

	if msg.Reply == "" {
		return
	}
	body, err := json.Marshal(st)
	if err != nil {
		s.logger.Error(ctx, "encoding reply", logger.Error(err))
		return
	}
	if err := msg.Respond(body); err != nil {
		metrics.RecordErrorByComponent("natsingest", "respond")
		s.logger.Warn(ctx, "reply failed", logger.String("reply", msg.Reply), logger.Error(err))
	}
}

func (s *Subscriber) process(ctx context.Context, data []byte) model.IngestStatus {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Warn(ctx, "undecodable message", logger.Error(err))
		return model.IngestStatus{Status: model.StatusMalformed, Message: "malformed input: " + err.Error()}
	}
	if len(req.Telemetry) == 0 {
		return model.IngestStatus{Status: model.StatusMalformed, Message: "malformed input: telemetry is required"}
	}
	tel, err := model.ParseTelemetry(req.Telemetry)
	if err != nil {
		return model.IngestStatus{Status: model.StatusMalformed, Message: "malformed input: " + model.Detail(err)}
	}
	return s.ingestor.IngestMatch(ctx, tel, req.ScheduleID)
}
