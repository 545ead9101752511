// Package server implements the MCP (Model Context Protocol) server for
// bubble-sheet grading.
//
// The server speaks JSON-RPC 2.0 over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods are initialize, tools/list, tools/call and ping.
// Diagnostics go to the logger passed to New, never to stdout.
//
// # Available Tools
//
// Image inspection:
//   - image_load: Image metadata
//   - image_crop: Enlarged pixel region
//   - image_guides: Normalized coordinate guides
//
// Preprocessing:
//   - omr_detect_orientation: Upright quarter turn
//   - omr_rectify: Perspective removal
//   - omr_estimate_alignment: Template offset calibration
//
// Templates and keys:
//   - omr_synthetic_grid: Fallback template
//   - omr_parse_key: Answer key from CSV or XLSX
//
// Grading:
//   - omr_grade_sheet: One sheet, with optional overlay
//   - omr_grade_batch: Many sheets, with CSV/XLSX export
//
// Images are cached by path for the lifetime of the process, so inspecting
// and then grading the same scan decodes it once.
//
// Tool failures are JSON-RPC errors with code -32000 and the Go error string
// as data.
package server
