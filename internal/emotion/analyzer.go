package emotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/serenia/internal/utils"
)

const (
	defaultTimeout = 8 * time.Second
	defaultTopK    = 3
)

const classifierInstruction = `You are an emotion classifier for a wellness companion.
Score the user's message against the GoEmotions labels.
Return only the labels that are present, each with a probability between 0 and 1.
Use "neutral" when no emotion is expressed. Do not add commentary.`

// classifierOutput is the structured reply requested from the model.
type classifierOutput struct {
	Scores []scoredLabel `json:"scores" jsonschema:"probability for each emotion label present in the message"`
}

type scoredLabel struct {
	Label string  `json:"label" jsonschema:"GoEmotions label"`
	Score float64 `json:"score" jsonschema:"probability between 0 and 1"`
}

// ClassifierOption configures an LLMClassifier.
type ClassifierOption func(*LLMClassifier)

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) ClassifierOption {
	return func(c *LLMClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTopK sets how many labels Result.Ranked keeps.
func WithTopK(k int) ClassifierOption {
	return func(c *LLMClassifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

// LLMClassifier classifies emotions with a language model and validates the
// structured reply against a JSON Schema before trusting it.
type LLMClassifier struct {
	model    model.LLM
	timeout  time.Duration
	topK     int
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

// NewLLMClassifier returns a classifier over m.
func NewLLMClassifier(m model.LLM, opts ...ClassifierOption) (*LLMClassifier, error) {
	schema, err := outputSchema()
	if err != nil {
		return nil, err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve classifier schema: %w", err)
	}

	c := &LLMClassifier{
		model:    m,
		timeout:  defaultTimeout,
		topK:     defaultTopK,
		schema:   schema,
		resolved: resolved,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func outputSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[classifierOutput](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to infer classifier schema: %w", err)
	}

	item := schema.Properties["scores"].Items
	labels := make([]any, 0, len(Labels))
	for _, label := range Labels {
		labels = append(labels, label)
	}
	item.Properties["label"].Enum = labels
	item.Properties["score"].Minimum = jsonschema.Ptr(0.0)
	item.Properties["score"].Maximum = jsonschema.Ptr(1.0)
	return schema, nil
}

// Classify scores text. Empty text yields a neutral result without calling the model.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	if c == nil || c.model == nil {
		return nil, fmt.Errorf("%w: model not configured", ErrClassifierUnavailable)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return NewResult(map[string]float64{}, c.topK), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText(text, genai.RoleUser),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction:  genai.NewContentFromText(classifierInstruction, "system"),
			Temperature:        genai.Ptr[float32](0),
			ResponseMIMEType:   "application/json",
			ResponseJsonSchema: c.schema,
		},
	}

	seq := c.model.GenerateContent(ctx, req, false)
	var resp *model.LLMResponse
	var err error
	seq(func(r *model.LLMResponse, e error) bool {
		resp = r
		err = e
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call model: %w", ErrClassifierUnavailable, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty model response", ErrClassifierUnavailable)
	}

	return c.parse(utils.ExtractContentText(resp.Content))
}

func (c *LLMClassifier) parse(raw string) (*Result, error) {
	var output classifierOutput
	instance, err := utils.DecodeJSONObject(raw, &output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	if err := c.resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: invalid classifier output: %w", ErrClassifierUnavailable, err)
	}

	scores := make(map[string]float64, len(output.Scores))
	for _, s := range output.Scores {
		label := strings.ToLower(strings.TrimSpace(s.Label))
		// Keep the highest score when a label repeats.
		if prev, ok := scores[label]; !ok || s.Score > prev {
			scores[label] = s.Score
		}
	}
	return NewResult(scores, c.topK), nil
}
