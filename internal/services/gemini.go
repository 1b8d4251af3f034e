package services

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// GeminiService usa o Gemini via Vertex AI com resposta JSON forçada por schema.
type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, projectID, region, model string) (*GeminiService, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewGeminiService: projectID and region cannot be empty")
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GeminiService{client: client, model: model}, nil
}

func (s *GeminiService) Infer(ctx context.Context, imageData []byte, mimeType string, schema ResponseSchema, instruction string) (string, error) {
	model := s.client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(schema),
		Temperature:      genai.Ptr[float32](0.0),
	}

	resp, err := model.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: imageData})
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func (s *GeminiService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func toGenaiSchema(schema ResponseSchema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(schema.Properties))
	for _, p := range schema.Properties {
		props[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props}
}

// responseText junta as partes de texto do primeiro candidato.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}
