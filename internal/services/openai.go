package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService lê o cartão com um modelo de visão compatível com a API da OpenAI.
type OpenAIService struct {
	client     *openai.Client
	modelImage string
}

func NewOpenAIService(apiKey, baseURL, modelImage string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client:     openai.NewClientWithConfig(cfg),
		modelImage: modelImage,
	}
}

func (s *OpenAIService) Infer(ctx context.Context, imageData []byte, mimeType string, schema ResponseSchema, instruction string) (string, error) {
	// Converter imagem para base64
	base64Image := base64.StdEncoding.EncodeToString(imageData)
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64Image)

	// O modo json_object não aceita schema, então ele vai no prompt
	schemaJSON, err := json.Marshal(schema.JSONSchema())
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       s.modelImage,
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: instruction + "\nJSON schema: " + string(schemaJSON),
				},
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: "Extract the business card fields from this image as JSON.",
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    imageURL,
								Detail: openai.ImageURLDetailHigh,
							},
						},
					},
				},
			},
		},
	)

	if err != nil {
		return "", fmt.Errorf("failed to process image with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
