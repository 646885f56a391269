package llm

import (
	"google.golang.org/genai"
)

// FieldType is the JSON type of a schema node.
type FieldType string

// Field types.
const (
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
)

// Property is a named field of an object schema. Properties keep their
// declaration order so prompts and schemas render deterministically.
type Property struct {
	Field *Field
	Name  string
}

// Field is one node of a response schema.
type Field struct {
	Items       *Field
	Type        FieldType
	Description string
	Enum        []string
	Properties  []Property
	Required    []string
}

// Schema is the provider-agnostic response contract for one operation.
type Schema struct {
	Root *Field
	Name string
}

func str(desc string, enum ...string) *Field {
	return &Field{Type: TypeString, Description: desc, Enum: enum}
}

// AnalysisSchema describes an AnalysisResult.
var AnalysisSchema = Schema{
	Name: "analysis_result",
	Root: &Field{
		Type: TypeObject,
		Properties: []Property{
			{Name: "found", Field: &Field{Type: TypeBoolean, Description: "Whether the HTS code was found under any derivative category."}},
			{Name: "matches", Field: &Field{
				Type:        TypeArray,
				Description: "A list of all specific derivative HTS categories or rules that this code falls under.",
				Items: &Field{
					Type: TypeObject,
					Properties: []Property{
						{Name: "derivativeCategory", Field: str("The specific name, ID, or header of the derivative category (e.g., 'Aluminum Stranded Wire', 'Heading 7604').")},
						{Name: "metalType", Field: str("The type of metal (Aluminum or Steel) associated with this specific match.", "Aluminum", "Steel", "Both", "Unknown")},
						{Name: "matchDetail", Field: str("Detailed extract or explanation of the specific rule/description in the document that this code matches.")},
						{Name: "confidence", Field: str("Confidence level: 'High' for direct code/range matches, 'Medium' for broad category matches, 'Low' for inferred/ambiguous matches.", "High", "Medium", "Low")},
					},
					Required: []string{"derivativeCategory", "metalType", "matchDetail", "confidence"},
				},
			}},
			{Name: "reasoning", Field: str("A general summary of why the code matches or does not match.")},
		},
		Required: []string{"found", "matches", "reasoning"},
	},
}

// ProvisionSchema describes a ProvisionResult.
var ProvisionSchema = Schema{
	Name: "provision_result",
	Root: &Field{
		Type: TypeObject,
		Properties: []Property{
			{Name: "found", Field: &Field{Type: TypeBoolean, Description: "Whether the requested HTS provision/heading was found or defined in the text."}},
			{Name: "code", Field: str("The specific HTS code or Heading found (e.g. '9903.81.91').")},
			{Name: "metalType", Field: str("The metal type associated (Aluminum, Steel, or Both).")},
			{Name: "description", Field: str("The full detailed text, scope, rules, and notes associated with this provision in the document.")},
		},
		Required: []string{"found", "code", "metalType", "description"},
	},
}

// HeadingsSchema describes the heading scan response.
var HeadingsSchema = Schema{
	Name: "document_headings",
	Root: &Field{
		Type: TypeObject,
		Properties: []Property{
			{Name: "headings", Field: &Field{
				Type:        TypeArray,
				Description: "A list of all unique HTS Headings (4-digit) mentioned in the document.",
				Items: &Field{
					Type: TypeObject,
					Properties: []Property{
						{Name: "heading", Field: str("The 4-digit HTS Heading code (e.g. 7604, 7306).")},
						{Name: "description", Field: str("The description or title associated with this heading in the document.")},
						{Name: "details", Field: str("A comprehensive summary of the specific rules, exclusions, and scope details mentioned in the text for this heading.")},
					},
					Required: []string{"heading", "description", "details"},
				},
			}},
		},
		Required: []string{"headings"},
	},
}

// GenAI converts the schema into the Gemini SDK representation.
func (s Schema) GenAI() *genai.Schema {
	return s.Root.genai()
}

func (f *Field) genai() *genai.Schema {
	if f == nil {
		return nil
	}
	out := &genai.Schema{
		Description: f.Description,
		Enum:        f.Enum,
		Required:    f.Required,
	}
	switch f.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(f.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(f.Properties))
		out.PropertyOrdering = make([]string, 0, len(f.Properties))
		for _, p := range f.Properties {
			out.Properties[p.Name] = p.Field.genai()
			out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
		}
	}
	if f.Items != nil {
		out.Items = f.Items.genai()
	}
	return out
}

// JSONSchema converts the schema into a JSON Schema document suitable for
// strict structured output: every object closes additionalProperties.
func (s Schema) JSONSchema() map[string]any {
	return s.Root.jsonSchema()
}

func (f *Field) jsonSchema() map[string]any {
	out := map[string]any{"type": string(f.Type)}
	if f.Description != "" {
		out["description"] = f.Description
	}
	if len(f.Enum) > 0 {
		out["enum"] = f.Enum
	}
	if f.Type == TypeObject {
		props := make(map[string]any, len(f.Properties))
		for _, p := range f.Properties {
			props[p.Name] = p.Field.jsonSchema()
		}
		out["properties"] = props
		out["required"] = f.Required
		out["additionalProperties"] = false
	}
	if f.Items != nil {
		out["items"] = f.Items.jsonSchema()
	}
	return out
}
