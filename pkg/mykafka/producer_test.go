package mykafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoBrokersIsNoop(t *testing.T) {
	p := New(nil)
	_, ok := p.(Noop)
	require.True(t, ok)
	assert.NoError(t, p.PublishEvent(context.Background(), TopicOrderEvents, "k", map[string]any{"a": 1}))
	assert.NoError(t, p.Close())
}

func TestProducer_MarshalError(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"})
	t.Cleanup(func() { _ = p.Close() })

	err := p.PublishEvent(context.Background(), TopicOrderEvents, "k", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json.Marshal")
}

func TestPublish_RecordsToMemory(t *testing.T) {
	m := &Memory{}
	Publish(context.Background(), m, TopicProductEvents, "7", map[string]any{"type": "product_created", "id": 7})
	Publish(context.Background(), nil, TopicProductEvents, "7", map[string]any{"type": "ignored"})

	assert.Equal(t, []string{"product_created"}, m.Types(TopicProductEvents))
	assert.Empty(t, m.Types(TopicOrderEvents))
}
