package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

type fakeMentionWriter struct {
	batches [][]*models.Mention
	result  *models.IngestMentionsResult
	err     error
}

func (f *fakeMentionWriter) CreateBatch(_ context.Context, mentions []*models.Mention) (*models.IngestMentionsResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, mentions)
	if f.result != nil {
		return f.result, nil
	}
	return &models.IngestMentionsResult{Stored: len(mentions)}, nil
}

type fakeScanner struct {
	cases []string
	err   error
}

func (f *fakeScanner) Run(_ context.Context, caseID string) (*matching.ScanResult, error) {
	f.cases = append(f.cases, caseID)
	if f.err != nil {
		return nil, f.err
	}
	return &matching.ScanResult{CaseID: caseID}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestIngest(t *testing.T) {
	requests := []models.CreateMentionRequest{
		{DocumentID: "doc-1", RawText: "Jane Smith", EntityType: models.EntityTypePerson},
		{DocumentID: "doc-1", RawText: "Dr. J. Smith", EntityType: models.EntityTypeProfessional, EntityRole: models.EntityRoleExpertWitness},
	}

	t.Run("stores mentions and triggers a scan", func(t *testing.T) {
		writer := &fakeMentionWriter{}
		scanner := &fakeScanner{}
		processor := NewProcessor(testLogger(), writer, scanner)

		result, err := processor.Ingest(context.Background(), "case-1", requests)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Stored)

		require.Len(t, writer.batches, 1)
		stored := writer.batches[0]
		require.Len(t, stored, 2)
		assert.Equal(t, "case-1", stored[0].CaseID)
		assert.NotEmpty(t, stored[0].Fingerprint)
		assert.Equal(t, models.EntityRoleUnknown, stored[0].EntityRole)
		assert.Equal(t, models.EntityRoleExpertWitness, stored[1].EntityRole)

		assert.Equal(t, []string{"case-1"}, scanner.cases)
	})

	t.Run("all duplicates skips the scan", func(t *testing.T) {
		writer := &fakeMentionWriter{result: &models.IngestMentionsResult{Stored: 0, Duplicates: 2}}
		scanner := &fakeScanner{}
		processor := NewProcessor(testLogger(), writer, scanner)

		result, err := processor.Ingest(context.Background(), "case-1", requests)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Duplicates)
		assert.Empty(t, scanner.cases)
	})

	t.Run("unknown entity type is a bad request", func(t *testing.T) {
		processor := NewProcessor(testLogger(), &fakeMentionWriter{}, &fakeScanner{})

		_, err := processor.Ingest(context.Background(), "case-1", []models.CreateMentionRequest{
			{DocumentID: "doc-1", RawText: "Jane Smith", EntityType: "alien"},
		})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("scan failure does not fail ingestion", func(t *testing.T) {
		writer := &fakeMentionWriter{}
		scanner := &fakeScanner{err: errors.New("scan broke")}
		processor := NewProcessor(testLogger(), writer, scanner)

		result, err := processor.Ingest(context.Background(), "case-1", requests)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Stored)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		writer := &fakeMentionWriter{}
		processor := NewProcessor(testLogger(), writer, &fakeScanner{})

		result, err := processor.Ingest(context.Background(), "case-1", nil)
		require.NoError(t, err)
		assert.Zero(t, result.Stored)
		assert.Empty(t, writer.batches)
	})
}

func TestHandleMessage(t *testing.T) {
	t.Run("parses and ingests a batch", func(t *testing.T) {
		writer := &fakeMentionWriter{}
		scanner := &fakeScanner{}
		processor := NewProcessor(testLogger(), writer, scanner)

		payload, err := json.Marshal(kafka.MentionBatchMessage{
			CaseID: "case-9",
			Source: "extractor",
			Mentions: []models.CreateMentionRequest{
				{DocumentID: "doc-1", RawText: "Jane Smith", EntityType: models.EntityTypePerson},
			},
		})
		require.NoError(t, err)

		msg := &kafka.IncomingMessage{Value: payload}
		require.NoError(t, msg.ParseMentionBatch())

		require.NoError(t, processor.HandleMessage(context.Background(), msg))
		require.Len(t, writer.batches, 1)
		assert.Equal(t, "case-9", writer.batches[0][0].CaseID)
		assert.Equal(t, []string{"case-9"}, scanner.cases)
	})

	t.Run("storage failure propagates for redelivery", func(t *testing.T) {
		writer := &fakeMentionWriter{err: errors.New("db down")}
		processor := NewProcessor(testLogger(), writer, &fakeScanner{})

		payload, err := json.Marshal(kafka.MentionBatchMessage{
			CaseID: "case-9",
			Mentions: []models.CreateMentionRequest{
				{DocumentID: "doc-1", RawText: "Jane Smith", EntityType: models.EntityTypePerson},
			},
		})
		require.NoError(t, err)

		msg := &kafka.IncomingMessage{Value: payload}
		require.NoError(t, msg.ParseMentionBatch())

		assert.Error(t, processor.HandleMessage(context.Background(), msg))
	})
}
