package natsingest

import (
	"time"

	"github.com/okian/royale/pkg/logger"
)

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithSubject sets the subject to subscribe to.
func WithSubject(subject string) Option {
	return func(s *Subscriber) {
		if subject != "" {
			s.subject = subject
		}
	}
}

// WithQueue sets the queue group shared by server instances.
func WithQueue(queue string) Option {
	return func(s *Subscriber) {
		if queue != "" {
			s.queue = queue
		}
	}
}

// WithTimeout bounds the handling of one message.
func WithTimeout(d time.Duration) Option {
	return func(s *Subscriber) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Subscriber) {
		if l != nil {
			s.logger = l
		}
	}
}
