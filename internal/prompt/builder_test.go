package prompt

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/types"
)

func newTestBuilder(limit int) *Builder {
	b := NewBuilder(limit)
	b.nowFunc = func() time.Time { return time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestBuildIncludesSignalsAndHistory(t *testing.T) {
	b := newTestBuilder(2)

	req, err := b.Build(BuildContext{
		UserMessage: "  work is too much  ",
		Emotion:     &emotion.Result{PrimaryLabel: "nervousness"},
		Anxiety:     &severity.AnxietySignal{Detected: true, Severity: severity.AnxietyModerate},
		History: []conversation.Turn{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "second"},
			{Role: "user", Content: "third"},
		},
		Recalled:  []types.RetrievedMessage{{Role: "user", Content: "my boss yelled last week"}},
		Resources: severity.DefaultResources(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(req.Contents) != 1 || req.Contents[0].Role != genai.RoleUser || req.Contents[0].Parts[0].Text != "work is too much" {
		t.Fatalf("unexpected contents: %#v", req.Contents)
	}

	instruction := req.Config.SystemInstruction.Parts[0].Text
	for _, want := range []string{
		"Current time: 2026-09-15T12:00:00Z",
		"- Detected emotion: nervousness",
		"- Anxiety level: moderate",
		"- my boss yelled last week",
		"Serenia: second",
		"User: third",
	} {
		if !strings.Contains(instruction, want) {
			t.Fatalf("expected instruction to contain %q, got:\n%s", want, instruction)
		}
	}
	if strings.Contains(instruction, "User: first") {
		t.Fatalf("expected history to be limited to 2 turns")
	}
	if strings.Contains(instruction, "CRISIS") || strings.Contains(instruction, "Normal conversation") {
		t.Fatalf("unexpected crisis or neutral section:\n%s", instruction)
	}
}

func TestBuildCrisisInstructions(t *testing.T) {
	b := newTestBuilder(5)

	instruction, err := b.Instruction(BuildContext{
		UserMessage: "I can't go on",
		Crisis:      &severity.CrisisSignal{Detected: true, Severity: severity.CrisisHigh},
		Resources:   severity.DefaultResources(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(instruction, "CRISIS INDICATORS DETECTED (high severity)") {
		t.Fatalf("expected crisis section, got:\n%s", instruction)
	}
	if !strings.Contains(instruction, "call 988 (988 Suicide & Crisis Lifeline), Text HOME to 741741") {
		t.Fatalf("expected resources in crisis section, got:\n%s", instruction)
	}
}

func TestBuildNeutralConversation(t *testing.T) {
	instruction, err := newTestBuilder(5).Instruction(BuildContext{UserMessage: "hi"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(instruction, "- Normal conversation") {
		t.Fatalf("expected neutral marker, got:\n%s", instruction)
	}
}

func TestBuildRejectsEmptyMessage(t *testing.T) {
	if _, err := newTestBuilder(5).Build(BuildContext{UserMessage: "  "}); err == nil {
		t.Fatalf("expected error for empty message")
	}
}
