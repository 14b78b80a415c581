package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic identifies one dashboard document.
type Topic string

// The two dashboard topics.
const (
	TopicKPI         Topic = "kpi_dashboard"
	TopicNewStarters Topic = "new_starters_dashboard"
)

// Topics lists every topic.
func Topics() []Topic { return []Topic{TopicKPI, TopicNewStarters} }

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool { return t == TopicKPI || t == TopicNewStarters }

// ParseTopic validates s as a topic name.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, s)
	}
	return t, nil
}

// DocumentPath is where the topic's document lives for appID.
func DocumentPath(appID string, t Topic) string {
	return fmt.Sprintf("artifacts/%s/public/data/%s/team_data", appID, t)
}

// Snapshot is the full state of a topic's document at one point in time.
// Exists is false when the document has not been created yet.
type Snapshot struct {
	Topic     Topic
	Exists    bool
	Data      json.RawMessage
	Version   int64
	UpdatedAt time.Time
}

// Decode unmarshals the document into v.
func (s Snapshot) Decode(v any) error {
	if !s.Exists {
		return nil
	}
	if err := json.Unmarshal(s.Data, v); err != nil {
		return fmt.Errorf("decode %s snapshot: %w", s.Topic, err)
	}
	return nil
}
