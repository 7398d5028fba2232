package podcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/alkime/docucast/pkg/collections"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const scriptToolName = "save_script"

// AnthropicWriter writes scripts with Claude, using a tool call for
// structured output.
type AnthropicWriter struct {
	apiKey string
	model  anthropic.Model
}

func NewAnthropicWriter(apiKey string) *AnthropicWriter {
	return &AnthropicWriter{
		apiKey: apiKey,
		model:  anthropic.ModelClaudeSonnet4_5_20250929,
	}
}

// scriptToolInput is the save_script tool's input.
type scriptToolInput struct {
	Lines []conversion.Line `json:"lines"`
}

func getScriptTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        scriptToolName,
		Description: anthropic.String("Save the finished episode script as an ordered list of spoken lines"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type: "object",
			Properties: map[string]interface{}{
				"lines": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"speaker": map[string]interface{}{
								"type": "string",
								"enum": []string{string(conversion.SpeakerHost), string(conversion.SpeakerExpert)},
							},
							"text": map[string]interface{}{
								"type":        "string",
								"description": "What the speaker says, as plain spoken text",
							},
						},
						"required": []string{"speaker", "text"},
					},
				},
			},
			Required: []string{"lines"},
		},
	}
}

// Write asks the model for a script and validates it.
func (w *AnthropicWriter) Write(ctx context.Context, src Source, p prefs.Preferences) ([]conversion.Line, error) {
	if w.apiKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY or run docucast config set-key anthropic")
	}

	client := anthropic.NewClient(option.WithAPIKey(w.apiKey))
	toolDef := getScriptTool()

	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	params := anthropic.MessageNewParams{
		Model:     w.model,
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt(p)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(src))),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool(scriptToolName),
	}

	slog.Debug("Requesting script", "title", src.Title, "chars", len(src.Text), "preferences", p)

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate script via Anthropic API: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, errors.New("empty response from Anthropic API")
	}

	input, err := parseScriptToolUse(resp.Content)
	if err != nil {
		return nil, err
	}

	if err := ValidateScript(input.Lines); err != nil {
		return nil, fmt.Errorf("invalid script from Anthropic API: %w", err)
	}

	return input.Lines, nil
}

func parseScriptToolUse(content []anthropic.ContentBlockUnion) (*scriptToolInput, error) {
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			return decodeScriptInput(toolUse.Input)
		}
	}

	return nil, errors.New("no tool use found in Anthropic API response")
}

func decodeScriptInput(raw any) (*scriptToolInput, error) {
	inputBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input: %w", err)
	}

	var input scriptToolInput
	if err := json.Unmarshal(inputBytes, &input); err != nil {
		return nil, fmt.Errorf("failed to parse tool input: %w", err)
	}

	// Models occasionally emit padding turns with no text.
	input.Lines = collections.Filter(input.Lines, func(l conversion.Line) bool {
		return strings.TrimSpace(l.Text) != ""
	})

	return &input, nil
}
