package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	MentionBatch *MentionBatchMessage
}

// MentionBatchMessage is one extractor output batch on the mentions topic:
// the mentions found in one or more documents of a single case
type MentionBatchMessage struct {
	CaseID   string                        `json:"case_id"`
	Source   string                        `json:"source,omitempty"`
	Mentions []models.CreateMentionRequest `json:"mentions"`
}

// ParseMentionBatch parses the message value as a mention batch
func (m *IncomingMessage) ParseMentionBatch() error {
	var batch MentionBatchMessage
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return err
	}
	if batch.CaseID == "" {
		return fmt.Errorf("mention batch has no case_id")
	}
	m.MentionBatch = &batch
	return nil
}

// GetCaseID returns the case the message belongs to
func (m *IncomingMessage) GetCaseID() string {
	if m.MentionBatch != nil {
		return m.MentionBatch.CaseID
	}
	// Fallback to header, then key
	if caseID := m.Headers["case_id"]; caseID != "" {
		return caseID
	}
	return m.Key
}

// GetSource returns the extractor that produced the batch
func (m *IncomingMessage) GetSource() string {
	if m.MentionBatch != nil && m.MentionBatch.Source != "" {
		return m.MentionBatch.Source
	}
	return m.Headers["source"]
}
