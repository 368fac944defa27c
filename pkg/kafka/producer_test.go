package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	t.Run("plain brokers use the default transport", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
		assert.Nil(t, p.transport)
		assert.Empty(t, p.writers)
	})

	t.Run("SASL builds a transport", func(t *testing.T) {
		p, err := NewProducer(Config{
			Brokers:       []string{"kafka:9092"},
			TLS:           true,
			SASLEnabled:   true,
			SASLMechanism: "SCRAM-SHA-512",
			SASLUsername:  "ledger",
			SASLPassword:  "secret",
		})
		require.NoError(t, err)
		require.NotNil(t, p.transport)
		assert.NotNil(t, p.transport.TLS)
		assert.Equal(t, "SCRAM-SHA-512", p.transport.SASL.Name())
	})

	t.Run("unknown mechanism", func(t *testing.T) {
		_, err := NewProducer(Config{Brokers: []string{"kafka:9092"}, SASLEnabled: true, SASLMechanism: "GSSAPI"})
		assert.Error(t, err)
	})
}

func TestProducer_Writers(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	a := p.writer("topic-a")
	assert.Same(t, a, p.writer("topic-a"))
	assert.NotSame(t, a, p.writer("topic-b"))
	assert.IsType(t, &kafkago.Hash{}, a.Balancer)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestMessage_Conversion(t *testing.T) {
	msg := Message{
		Key:     []byte("loan/1"),
		Value:   []byte(`{"amount":100}`),
		Headers: map[string]string{"event_type": "microloan.loan.created"},
	}

	km := msg.toKafka()
	require.Len(t, km.Headers, 1)
	assert.Equal(t, "event_type", km.Headers[0].Key)

	back := fromKafka(km)
	assert.Equal(t, msg, back)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.NoError(t, Config{Brokers: []string{"k:9092"}, SASLEnabled: true}.Validate())
	assert.Error(t, Config{Brokers: []string{"k:9092"}, SASLEnabled: true, SASLMechanism: "nope"}.Validate())
}
