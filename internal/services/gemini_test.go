package services

import (
	"testing"

	"meishi-bot/internal/models"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGenaiSchema(t *testing.T) {
	t.Parallel()
	s := toGenaiSchema(CardSchema)
	assert.Equal(t, genai.TypeObject, s.Type)
	require.Len(t, s.Properties, len(models.ScanFields))
	assert.Equal(t, genai.TypeString, s.Properties[models.FieldPostalCode].Type)
	assert.NotEmpty(t, s.Properties[models.FieldAddress].Description)
}

func TestResponseText(t *testing.T) {
	t.Parallel()
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"company":`), genai.Text(`"ACME"} `)}},
		}},
	}
	assert.Equal(t, `{"company":"ACME"}`, responseText(resp))
}
