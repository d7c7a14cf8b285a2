package natssink

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radioafricagroup/glowroot/internal/aggregator"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestStorePublishesUnderSubjectPrefixAndType(t *testing.T) {
	fp := &fakePublisher{}
	s := &Sink{client: fp, subject: "glowroot.aggregates"}

	overall := &aggregator.TransactionPoint{CaptureTime: 1000, Count: 3, TotalNanos: 900}
	perTx := map[string]*aggregator.TransactionPoint{
		"checkout": {CaptureTime: 1000, TransactionName: "checkout", Count: 3, TotalNanos: 900},
	}

	err := s.Store("bg", overall, perTx)
	require.NoError(t, err)

	assert.Equal(t, "glowroot.aggregates.bg", fp.subject)

	var got envelope
	require.NoError(t, json.Unmarshal(fp.data, &got))
	assert.Equal(t, "bg", got.TransactionType)
	assert.EqualValues(t, 1000, got.CaptureTime)
	require.NotNil(t, got.Overall)
	assert.EqualValues(t, 3, got.Overall.Count)
	require.Contains(t, got.PerTransaction, "checkout")
}

func TestStoreWrapsPublishError(t *testing.T) {
	fp := &fakePublisher{err: fmt.Errorf("connection reset")}
	s := &Sink{client: fp, subject: "glowroot.aggregates"}

	err := s.Store("", &aggregator.TransactionPoint{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "glowroot.aggregates.")
}
