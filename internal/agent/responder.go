// Package agent generates the companion's replies.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"

	"github.com/easeaico/serenia/internal/prompt"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/utils"
)

const defaultReplyTimeout = 30 * time.Second

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("empty reply")

// Responder produces the assistant reply for one turn.
type Responder interface {
	Respond(ctx context.Context, in prompt.BuildContext) (string, error)
}

// Companion generates replies with an LLM.
type Companion struct {
	model   model.LLM
	builder *prompt.Builder
	timeout time.Duration
}

var _ Responder = (*Companion)(nil)

// NewCompanion creates a Companion. A non-positive timeout selects 30s.
func NewCompanion(m model.LLM, builder *prompt.Builder, timeout time.Duration) (*Companion, error) {
	if m == nil {
		return nil, fmt.Errorf("llm model is required")
	}
	if builder == nil {
		builder = prompt.NewBuilder(0)
	}
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	return &Companion{model: m, builder: builder, timeout: timeout}, nil
}

// Respond renders the request and returns the first non-empty model text.
func (c *Companion) Respond(ctx context.Context, in prompt.BuildContext) (string, error) {
	req, err := c.builder.Build(in)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reply string
	for resp, err := range c.model.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("failed to generate reply: %w", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		if reply = strings.TrimSpace(utils.ExtractContentText(resp.Content)); reply != "" {
			break
		}
	}
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// Fallback answers without a model: it is used when no LLM is configured
// and when the Companion fails.
type Fallback struct{}

var _ Responder = Fallback{}

func (Fallback) Respond(_ context.Context, in prompt.BuildContext) (string, error) {
	return FallbackReply(in.Crisis, in.Anxiety, in.Resources), nil
}

// FallbackReply is the fixed supportive reply for the given signals. A
// detected crisis always yields the intervention message and resources.
func FallbackReply(crisis *severity.CrisisSignal, anxiety *severity.AnxietySignal, resources severity.Resources) string {
	if crisis != nil && crisis.Detected {
		message := crisis.InterventionMessage
		if message == "" {
			message = severity.InterventionMessage(crisis.Severity)
		}
		return fmt.Sprintf("%s You can call %s, text HOME to %s, or chat at %s.",
			message, resources.Hotline.Number, resources.Text.Number, resources.Chat.URL)
	}
	if anxiety != nil && anxiety.Severity >= severity.AnxietyModerate {
		return "I can sense you're going through a tough time. I'm here to listen. What's on your mind?"
	}
	return "I'm here for you. How are you feeling right now?"
}
