package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if required != nil {
		schema["required"] = required
	}
	return schema
}

// gradeProperties returns the properties shared by omr_grade_sheet and
// omr_grade_batch, merged into extra.
func gradeProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"version":       prop("string", "Sheet version (A-D). Defaults to the server's OMR_SHEET_VERSION"),
		"template_path": prop("string", "Template JSON with normalized option boxes. Omit to use the synthetic grid"),
		"key_path":      prop("string", "Answer key as CSV or XLSX. Omit to skip scoring"),
		"key_sheet":     prop("string", "Worksheet of the key workbook. Falls back to the first sheet"),
		"strategy": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"auto", "gap", "fill"},
			"description": "Mark detector. auto uses fill with a template and gap with the synthetic grid",
			"default":     "auto",
		},
		"fill_threshold":   prop("number", "Minimum ink fraction for the fill strategy. Default 0.45"),
		"min_margin":       prop("number", "Minimum lead over the runner-up for the fill strategy. Default 0.12"),
		"scale_x":          prop("number", "Horizontal box scale, near 1.0"),
		"scale_y":          prop("number", "Vertical box scale, near 1.0"),
		"offset_x":         prop("number", "Horizontal box offset as a fraction of width"),
		"offset_y":         prop("number", "Vertical box offset as a fraction of height"),
		"align":            prop("boolean", "Estimate a template offset from vertical edges and add it to the adjustment"),
		"skip_orientation": prop("boolean", "Do not try quarter turns"),
		"skip_rectify":     prop("boolean", "Do not remove perspective"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	path := prop("string", "Absolute path to the sheet image")

	return []Tool{
		// Image inspection
		{
			Name:        "image_load",
			Description: "Load a sheet image and return its dimensions, decoded format and whether it is landscape.",
			InputSchema: object([]string{"path"}, map[string]interface{}{"path": path}),
		},
		{
			Name:        "image_crop",
			Description: "Crop a pixel region from a sheet image and return it as base64-encoded PNG. Use this to inspect individual bubbles.",
			InputSchema: object([]string{"path", "x1", "y1", "x2", "y2"}, map[string]interface{}{
				"path": path,
				"x1":   prop("integer", "Left edge X coordinate (0-based)"),
				"y1":   prop("integer", "Top edge Y coordinate (0-based)"),
				"x2":   prop("integer", "Right edge X coordinate (exclusive)"),
				"y2":   prop("integer", "Bottom edge Y coordinate (exclusive)"),
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Optional scale factor (e.g., 4.0 to enlarge bubbles). Default 1.0",
					"default":     1.0,
				},
			}),
		},
		{
			Name:        "image_guides",
			Description: "Draw normalized guide lines every step of the width and height. Use this to read template box coordinates off a scan.",
			InputSchema: object([]string{"path"}, map[string]interface{}{
				"path": path,
				"step": map[string]interface{}{
					"type":        "number",
					"description": "Guide spacing as a fraction of the image size. Default 0.05",
					"default":     0.05,
				},
				"show_labels": prop("boolean", "Label guides with their percentage. Default true"),
				"color":       prop("string", "Guide colour as #rrggbb. Default green"),
			}),
		},

		// Preprocessing
		{
			Name:        "omr_detect_orientation",
			Description: "Score the four quarter turns of a sheet by vertical edge energy and report the upright rotation. The result is determined up to a half turn.",
			InputSchema: object([]string{"path"}, map[string]interface{}{"path": path}),
		},
		{
			Name:        "omr_rectify",
			Description: "Locate the sheet outline and warp it to an axis-aligned rectangle. Reports rectified=false when no four-cornered outline is found.",
			InputSchema: object([]string{"path"}, map[string]interface{}{
				"path":         path,
				"return_image": prop("boolean", "Include the rectified image as base64 PNG"),
			}),
		},
		{
			Name:        "omr_estimate_alignment",
			Description: "Search for the template offset that best lines boxes up with vertical edges. The offset is a calibration value and is not applied.",
			InputSchema: object([]string{"path"}, map[string]interface{}{
				"path":          path,
				"template_path": prop("string", "Template JSON. Omit to use the synthetic grid"),
				"search_ratio":  prop("number", "Search range as a fraction of the image size. Default 0.02"),
				"steps":         prop("integer", "Horizontal candidates. Default 21"),
				"y_steps":       prop("integer", "Vertical candidates. Default 1 (horizontal search only)"),
				"max_boxes":     prop("integer", "Boxes sampled per candidate. Default 200"),
				"normalize":     prop("boolean", "Orient and rectify the image before searching"),
			}),
		},

		// Templates and keys
		{
			Name:        "omr_synthetic_grid",
			Description: "Return the evenly spaced fallback template used when no template is supplied.",
			InputSchema: object(nil, map[string]interface{}{}),
		},
		{
			Name:        "omr_parse_key",
			Description: "Parse an answer key from CSV or XLSX. Cells look like \"37 - c\"; unparseable cells are skipped. Lists the workbook's sheets.",
			InputSchema: object([]string{"path"}, map[string]interface{}{
				"path":  prop("string", "Absolute path to the key file"),
				"sheet": prop("string", "Worksheet to read. Falls back to the first sheet"),
			}),
		},

		// Grading
		{
			Name:        "omr_grade_sheet",
			Description: "Grade one sheet: orient, rectify, detect marks and, with a key, score per subject.",
			InputSchema: object([]string{"path"}, gradeProperties(map[string]interface{}{
				"path":    path,
				"overlay": prop("boolean", "Include an overlay PNG with selected options in green"),
			})),
		},
		{
			Name:        "omr_grade_batch",
			Description: "Grade up to 500 sheets concurrently and optionally write a CSV summary, an XLSX workbook and overlay PNGs. Failed sheets become error rows.",
			InputSchema: object(nil, gradeProperties(map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Sheet image paths",
				},
				"dir":         prop("string", "Directory of PNG, JPEG or GIF sheets, added after paths"),
				"output_csv":  prop("string", "Write the summary CSV here"),
				"output_xlsx": prop("string", "Write the result workbook here"),
				"overlay_dir": prop("string", "Write <name>_overlay.png files into this directory"),
				"large_batch": prop("boolean", "Omit the per-sheet Answers_ worksheets"),
			})),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
