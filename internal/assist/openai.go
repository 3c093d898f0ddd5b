// Package assist – OpenAI primary backend
//
// OpenAIBackend adapts the OpenAI chat-completion API to the Backend
// contract. Any transport error, rate-limit response, empty choice list, or
// unparsable list payload is returned as an error so the orchestrator can
// degrade to the local fallback.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = openai.GPT4oMini
	defaultMaxTokens = 400
)

var errMalformedResponse = errors.New("malformed inference response")

// per-kind instructions. List-shaped kinds demand a bare JSON array so the
// response can be parsed without duck typing.
var prompts = map[Kind]string{
	KindGenerateTitle:  "Generate a concise title of at most six words for the following note. Respond with the title only, no quotes.",
	KindSummarize:      "Summarize the following note in at most two sentences. Respond with the summary only.",
	KindImproveContent: "Improve the grammar, punctuation, and clarity of the following note without changing its meaning. Respond with the improved text only.",
	KindGenerateIdeas:  "Suggest four to six follow-up ideas for the following note. Respond with a JSON array of strings and nothing else.",
	KindSuggestTags:    "Suggest up to five short lowercase tags for the following note. Respond with a JSON array of strings and nothing else.",
}

// OpenAIBackend is the remote inference backend. Safe for concurrent use.
type OpenAIBackend struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIBackend constructs the backend. An empty model selects the
// default. Returns nil when apiKey is empty so callers can wire the
// orchestrator without a primary.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIBackend{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

var _ Backend = (*OpenAIBackend)(nil)

// Complete sends one chat completion request for the kind and parses the
// response into the kind's result shape.
func (b *OpenAIBackend) Complete(ctx context.Context, kind Kind, content string) (Result, error) {
	prompt, ok := prompts[kind]
	if !ok {
		return Result{}, ErrUnknownKind
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		MaxTokens:   b.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{}, errMalformedResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Result{}, errMalformedResponse
	}

	switch kind {
	case KindGenerateIdeas, KindSuggestTags:
		items, err := parseList(text)
		if err != nil {
			return Result{}, err
		}
		return Result{Items: items}, nil
	default:
		return Result{Text: text}, nil
	}
}

// parseList decodes a JSON string array, tolerating a Markdown code fence
// around it. Empty arrays count as malformed so the fallback floor applies.
func parseList(text string) ([]string, error) {
	text = strings.TrimSpace(strings.Trim(text, "`"))
	text = strings.TrimPrefix(text, "json")

	var items []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, errMalformedResponse
	}
	out := items[:0]
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, errMalformedResponse
	}
	return out, nil
}
