package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	want := []string{
		"image_load", "image_crop", "image_guides",
		"omr_detect_orientation", "omr_rectify", "omr_estimate_alignment",
		"omr_synthetic_grid", "omr_parse_key",
		"omr_grade_sheet", "omr_grade_batch",
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	assert.Equal(t, want, names)
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			assert.NotEmpty(t, tool.Description)
			assert.Equal(t, "object", tool.InputSchema["type"])
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			require.True(t, ok, "properties missing")

			if req, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range req {
					assert.Contains(t, props, r, "required field not declared")
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		switch tool.Name {
		case "omr_synthetic_grid", "omr_grade_batch":
			assert.NotContains(t, tool.InputSchema, "required", tool.Name)
		default:
			assert.Contains(t, tool.InputSchema["required"], "path", tool.Name)
		}
	}
}

func TestToolDefinitions_GradeOptionsShared(t *testing.T) {
	var sheetProps, batchProps map[string]interface{}
	for _, tool := range GetToolDefinitions() {
		switch tool.Name {
		case "omr_grade_sheet":
			sheetProps = tool.InputSchema["properties"].(map[string]interface{})
		case "omr_grade_batch":
			batchProps = tool.InputSchema["properties"].(map[string]interface{})
		}
	}
	for _, k := range []string{"version", "template_path", "key_path", "strategy", "fill_threshold", "align"} {
		assert.Contains(t, sheetProps, k)
		assert.Contains(t, batchProps, k)
	}
	assert.Contains(t, sheetProps, "overlay")
	assert.NotContains(t, sheetProps, "output_xlsx")
	assert.Contains(t, batchProps, "output_xlsx")

	strategy := sheetProps["strategy"].(map[string]interface{})
	assert.Equal(t, []string{"auto", "gap", "fill"}, strategy["enum"])
}

func TestHandleToolsList(t *testing.T) {
	resp := newTestServer().handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 7, Method: "tools/list"})
	require.NotNil(t, resp)

	b, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []Tool `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Result.Tools, len(GetToolDefinitions()))
	assert.Equal(t, "image_load", decoded.Result.Tools[0].Name)
	assert.NotNil(t, decoded.Result.Tools[0].InputSchema["properties"])
}
