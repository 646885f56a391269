package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestSchema_GenAI(t *testing.T) {
	s := AnalysisSchema.GenAI()
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"found", "matches", "reasoning"}, s.PropertyOrdering)
	assert.Equal(t, []string{"found", "matches", "reasoning"}, s.Required)

	matches := s.Properties["matches"]
	require.NotNil(t, matches)
	assert.Equal(t, genai.TypeArray, matches.Type)
	require.NotNil(t, matches.Items)
	assert.Equal(t, []string{"Aluminum", "Steel", "Both", "Unknown"}, matches.Items.Properties["metalType"].Enum)
	assert.Equal(t, []string{"High", "Medium", "Low"}, matches.Items.Properties["confidence"].Enum)
	assert.Equal(t, genai.TypeBoolean, s.Properties["found"].Type)
}

func TestSchema_JSONSchema(t *testing.T) {
	for _, schema := range []Schema{AnalysisSchema, ProvisionSchema, HeadingsSchema} {
		t.Run(schema.Name, func(t *testing.T) {
			doc := schema.JSONSchema()
			assert.Equal(t, "object", doc["type"])
			assert.Equal(t, false, doc["additionalProperties"])

			props, ok := doc["properties"].(map[string]any)
			require.True(t, ok)
			required, ok := doc["required"].([]string)
			require.True(t, ok)
			for _, name := range required {
				assert.Contains(t, props, name)
			}
			// Strict structured output needs every property listed as required.
			assert.Len(t, required, len(props))
		})
	}

	items := HeadingsSchema.JSONSchema()["properties"].(map[string]any)["headings"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
}
