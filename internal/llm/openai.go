package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const describePrompt = "What’s in this image?"

type OpenAIClient struct {
	client      *openai.Client
	model       string
	visionModel string
}

var (
	_ Client           = (*OpenAIClient)(nil)
	_ StructuredClient = (*OpenAIClient)(nil)
	_ VisionClient     = (*OpenAIClient)(nil)
)

type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	// OpenRouter attribution headers, optional.
	Referrer string
	Title    string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func NewOpenAI(o OpenAIOptions) *OpenAIClient {
	config := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		config.BaseURL = o.BaseURL
	}
	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if o.Referrer != "" || o.Title != "" {
		h := http.Header{}
		if o.Referrer != "" {
			h.Set("HTTP-Referer", o.Referrer)
		}
		if o.Title != "" {
			h.Set("X-Title", o.Title)
		}
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{Timeout: httpClient.Timeout, Transport: headerTransport{rt: base, headers: h}}
	}
	config.HTTPClient = httpClient
	vision := o.VisionModel
	if vision == "" {
		vision = o.Model
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		model:       o.Model,
		visionModel: vision,
	}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message, opts ...CallOption) (Response, error) {
	o := applyOptions(opts)
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAI(messages),
		MaxTokens: o.maxTokens,
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, ErrEmptyResponse
	}
	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *OpenAIClient) GenerateStructured(ctx context.Context, messages []Message, schemaName string, target any) error {
	shape := target
	if v := reflect.ValueOf(target); v.Kind() == reflect.Pointer && !v.IsNil() {
		shape = v.Elem().Interface()
	}
	schema, err := jsonschema.GenerateSchemaForType(shape)
	if err != nil {
		return fmt.Errorf("build %s schema: %w", schemaName, err)
	}
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAI(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create structured completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ErrEmptyResponse
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return &RefusalError{Reason: msg.Refusal}
	}
	if strings.TrimSpace(msg.Content) == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(msg.Content), target); err != nil {
		return fmt.Errorf("parse %s: %w", schemaName, err)
	}
	return nil
}

func (c *OpenAIClient) DescribeImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	req := openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: describePrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto}},
			},
		}},
		MaxTokens: 400,
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to describe image: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
