package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/omr-grader/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "omr_grade_sheet", "image_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Str("tool", params.Name).Err(err).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler unmarshals its arguments, applies defaults for optional
// parameters, loads images through the cache and returns a JSON-encodable
// result.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image inspection
	case "image_load":
		return s.handleImageLoad(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_guides":
		return s.handleImageGuides(args)

	// Preprocessing
	case "omr_detect_orientation":
		return s.handleDetectOrientation(args)
	case "omr_rectify":
		return s.handleRectify(args)
	case "omr_estimate_alignment":
		return s.handleEstimateAlignment(args)

	// Templates and keys
	case "omr_synthetic_grid":
		return s.handleSyntheticGrid(args)
	case "omr_parse_key":
		return s.handleParseKey(args)

	// Grading
	case "omr_grade_sheet":
		return s.handleGradeSheet(ctx, args)
	case "omr_grade_batch":
		return s.handleGradeBatch(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image inspection handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropRegion(img, image.Rect(a.X1, a.Y1, a.X2, a.Y2), a.Scale)
}

type imageGuidesArgs struct {
	Path       string  `json:"path"`
	Step       float64 `json:"step"`
	ShowLabels *bool   `json:"show_labels"`
	Color      string  `json:"color"`
}

func (s *Server) handleImageGuides(args json.RawMessage) (interface{}, error) {
	var a imageGuidesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Step == 0 {
		a.Step = 0.05
	}
	if a.Step < 0 || a.Step >= 1 {
		return nil, fmt.Errorf("step must be in (0, 1), got %g", a.Step)
	}
	showLabels := true
	if a.ShowLabels != nil {
		showLabels = *a.ShowLabels
	}
	c := imaging.SelectedColor
	if a.Color != "" {
		parsed, err := imaging.ParseHexColor(a.Color)
		if err != nil {
			return nil, err
		}
		c = parsed
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(imaging.Guides(img, a.Step, showLabels, c))
}
