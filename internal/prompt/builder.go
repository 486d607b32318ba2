// Package prompt assembles the reply generator's request from the current
// signals and conversation state.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/types"
)

const defaultHistoryLimit = 5

// BuildContext contains all inputs for one reply.
type BuildContext struct {
	UserMessage string
	Emotion     *emotion.Result
	Anxiety     *severity.AnxietySignal
	Crisis      *severity.CrisisSignal
	History     []conversation.Turn
	Recalled    []types.RetrievedMessage
	Resources   severity.Resources
	Temperature float32
}

// Builder assembles reply requests.
type Builder struct {
	historyLimit int
	nowFunc      func() time.Time
}

// NewBuilder creates a Builder keeping at most historyLimit prior turns.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Builder{
		historyLimit: historyLimit,
		nowFunc:      time.Now,
	}
}

// Build renders the system instruction and wraps the user message into a request.
func (b *Builder) Build(ctx BuildContext) (*model.LLMRequest, error) {
	message := strings.TrimSpace(ctx.UserMessage)
	if message == "" {
		return nil, fmt.Errorf("user message is required")
	}

	instruction, err := b.Instruction(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, "system"),
	}
	if ctx.Temperature > 0 {
		cfg.Temperature = genai.Ptr(ctx.Temperature)
	}
	return &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(message, genai.RoleUser)},
		Config:   cfg,
	}, nil
}

// Instruction renders the system instruction alone.
func (b *Builder) Instruction(ctx BuildContext) (string, error) {
	history := ctx.History
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}

	data := struct {
		Now       string
		Emotion   string
		Anxiety   string
		Crisis    string
		Resources severity.Resources
		Recalled  []types.RetrievedMessage
		History   []conversation.Turn
	}{
		Now:       b.nowFunc().Format(time.RFC3339),
		Resources: ctx.Resources,
		Recalled:  ctx.Recalled,
		History:   history,
	}
	if ctx.Emotion != nil && ctx.Emotion.PrimaryLabel != "" {
		data.Emotion = ctx.Emotion.PrimaryLabel
	}
	if ctx.Anxiety != nil && ctx.Anxiety.Detected {
		data.Anxiety = ctx.Anxiety.Severity.String()
	}
	if ctx.Crisis != nil && ctx.Crisis.Detected {
		data.Crisis = ctx.Crisis.Severity.String()
	}

	var buf bytes.Buffer
	if err := companionTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return buf.String(), nil
}
