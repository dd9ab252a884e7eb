package mykafka

import (
	"context"
	"sync"
)

type Message struct {
	Topic string
	Key   string
	Event any
}

// Memory keeps published events in memory. Used by tests.
type Memory struct {
	mu       sync.Mutex
	Messages []Message
}

func (m *Memory) PublishEvent(_ context.Context, topic, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, Message{Topic: topic, Key: key, Event: event})
	return nil
}

func (m *Memory) Close() error { return nil }

// Types returns the "type" field of every event published to topic.
func (m *Memory) Types(topic string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.Messages {
		if msg.Topic != topic {
			continue
		}
		if ev, ok := msg.Event.(map[string]any); ok {
			if t, ok := ev["type"].(string); ok {
				out = append(out, t)
			}
		}
	}
	return out
}
