// Package natssink implements a TransactionPointRepository that
// publishes flushed windows to a NATS subject as JSON, grounded on the
// singleton publish/subscribe client in pkg/nats.
package natssink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Radioafricagroup/glowroot/internal/aggregator"
	"github.com/Radioafricagroup/glowroot/pkg/nats"
)

// publisher is the slice of *nats.Client this package depends on, kept
// narrow so tests can fake it without a running NATS server.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Sink publishes one message per transaction type per flushed window to
// Subject, suffixed with the type ("glowroot.aggregates.bg" for the
// background bucket; the foreground type "" gives "glowroot.aggregates.").
type Sink struct {
	client  publisher
	subject string
}

// New wraps client, publishing under subjectPrefix + "." + transactionType.
func New(client *nats.Client, subjectPrefix string) *Sink {
	return &Sink{client: client, subject: subjectPrefix}
}

// envelope is the wire shape of a published aggregate window.
type envelope struct {
	TransactionType string `json:"transactionType"`
	CaptureTime     int64  `json:"captureTime"`

	Overall        *aggregator.TransactionPoint            `json:"overall"`
	PerTransaction map[string]*aggregator.TransactionPoint `json:"perTransaction"`
}

var _ aggregator.TransactionPointRepository = (*Sink)(nil)

// Store implements aggregator.TransactionPointRepository.
func (s *Sink) Store(transactionType string, overall *aggregator.TransactionPoint, perTransaction map[string]*aggregator.TransactionPoint) error {
	payload, err := json.Marshal(envelope{
		TransactionType: transactionType,
		CaptureTime:     overall.CaptureTime,
		Overall:         overall,
		PerTransaction:  perTransaction,
	})
	if err != nil {
		return fmt.Errorf("natssink: marshal window for %q: %w", transactionType, err)
	}

	subject := fmt.Sprintf("%s.%s", s.subject, transactionType)
	if err := s.client.Publish(subject, payload); err != nil {
		return fmt.Errorf("natssink: publish to %q: %w", subject, err)
	}
	return nil
}

// Deadline is not referenced by Store: nats.Client.Publish is
// fire-and-forget over an already-established connection, and Store
// applies no timeout of its own.
const Deadline = 5 * time.Second
