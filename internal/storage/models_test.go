package storage

import (
	"testing"
	"time"

	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/types"
)

func TestMessageModelRoundTrip(t *testing.T) {
	confidence := 0.82
	msg := &types.Message{
		ConversationID:    "c1",
		Role:              "user",
		Content:           "I feel hopeless",
		Timestamp:         time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Emotion:           "sadness",
		EmotionConfidence: &confidence,
		EmotionDetails:    map[string]float64{"sadness": 0.82, "grief": 0.1},
		AnxietyDetected:   true,
		AnxietySeverity:   severity.AnxietyModerate,
		CrisisDetected:    true,
		CrisisSeverity:    severity.CrisisMedium,
		CrisisKeywords:    []string{"hopeless"},
	}

	record, err := messageToModel(msg, []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if record.Embedding == nil || len(record.Embedding.Slice()) != 2 {
		t.Fatalf("expected embedding to be stored")
	}
	if record.AnxietySeverity == nil || *record.AnxietySeverity != "moderate" {
		t.Fatalf("unexpected anxiety label: %v", record.AnxietySeverity)
	}

	got := messageFromModel(record)
	if got.Emotion != "sadness" || got.AnxietySeverity != severity.AnxietyModerate || got.CrisisSeverity != severity.CrisisMedium {
		t.Fatalf("unexpected decoded message: %#v", got)
	}
	if got.EmotionDetails["grief"] != 0.1 || len(got.CrisisKeywords) != 1 {
		t.Fatalf("unexpected json fields: %#v", got)
	}
}

func TestAssistantMessageHasNoSignalLabels(t *testing.T) {
	record, err := messageToModel(&types.Message{ConversationID: "c1", Role: "assistant", Content: "hi"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if record.Emotion != nil || record.AnxietySeverity != nil || record.CrisisSeverity != nil {
		t.Fatalf("expected nil labels for assistant message: %#v", record)
	}
	if record.Embedding != nil || record.EmotionDetails != nil {
		t.Fatalf("expected no embedding or details")
	}
}

func TestConversationFromModel(t *testing.T) {
	emotion := "joy"
	conv := conversationFromModel(conversationModel{ID: "c1", UserID: "u1", MessageCount: 4, DominantEmotion: &emotion})
	if conv.DominantEmotion != "joy" || conv.AverageAnxietyLevel != "" || conv.MessageCount != 4 {
		t.Fatalf("unexpected conversation: %#v", conv)
	}
}

func TestMessageFromModelSkipsCorruptJSON(t *testing.T) {
	record := messageModel{
		ID:             7,
		ConversationID: "c1",
		Role:           "user",
		Content:        "hello",
		EmotionDetails: []byte(`{"joy":`),
		CrisisKeywords: []byte(`not json`),
	}

	got := messageFromModel(record)
	if got.ID != 7 || got.Content != "hello" {
		t.Fatalf("expected message fields to survive, got %#v", got)
	}
	if got.EmotionDetails != nil || got.CrisisKeywords != nil {
		t.Fatalf("expected corrupt JSON columns to be dropped, got %v %v", got.EmotionDetails, got.CrisisKeywords)
	}
}
