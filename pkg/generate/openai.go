package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// Default generation parameters, tuned for short conversational statements.
const (
	DefaultModel       = openai.GPT4oMini
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 250
	DefaultTimeout     = 30 * time.Second
)

// OpenAI implements Provider using the chat completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAI)

// WithModel overrides the default chat model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithTemperature overrides the default sampling temperature.
func WithTemperature(t float32) OpenAIOption {
	return func(o *OpenAI) { o.temperature = t }
}

// WithMaxTokens overrides the default completion length cap.
func WithMaxTokens(n int) OpenAIOption {
	return func(o *OpenAI) { o.maxTokens = n }
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) { o.timeout = d }
}

// NewOpenAI creates an OpenAI chat provider.
// Returns ErrNoAPIKey when the key is empty so the caller can degrade
// to the fallback for the process lifetime instead of per call.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	p := &OpenAI{
		client:      openai.NewClient(apiKey),
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Generate produces the persona's next statement via chat completion.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", WrapError(providerOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return "", WrapError(providerOpenAI, ErrEmptyCompletion)
	}

	text := cleanUtterance(resp.Choices[0].Message.Content, req.Persona.Name)
	if text == "" {
		return "", WrapError(providerOpenAI, ErrEmptyCompletion)
	}
	return text, nil
}

func systemPrompt(req Request) string {
	return fmt.Sprintf(`You are %s, an expert in %s.
Your personality: %s

You are taking part in a live-streamed panel discussion. Be:
- professional and respectful
- concrete and substantive
- natural in conversation
- ready with examples from your own field

Answer in 2-3 sentences.`, req.Persona.Name, req.Persona.Expertise, req.Persona.Personality)
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Discussion topic: %s\n\n", req.Topic)

	if len(req.History) > 0 {
		b.WriteString("Recent statements:\n")
		for _, msg := range req.History {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s, what do you think about this topic? (briefly, 2-3 sentences)", req.Persona.Name)
	return b.String()
}

// cleanUtterance strips artifacts models commonly prepend: the speaker's
// own name prefix and wrapping quotes.
func cleanUtterance(text, name string) string {
	text = strings.TrimSpace(text)
	if prefix := name + ":"; strings.HasPrefix(text, prefix) {
		text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
	}
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = text[1 : len(text)-1]
	}
	return strings.TrimSpace(text)
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
