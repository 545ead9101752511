// Package detection finds and simplifies shapes in binary images.
//
// The perspective rectifier uses it to locate the outline of the answer
// sheet in a thresholded photograph and reduce that outline to its corners.
//
// # Pipeline
//
//  1. Components: FindContours groups 8-connected foreground pixels with an
//     iterative flood fill
//  2. Boundary: each component's outer boundary is traced with Moore
//     neighbour tracing, clockwise from its first pixel in raster order
//  3. Measurement: Area (shoelace formula) and ArcLength of the traced
//     polygon
//  4. Simplification: ApproxPolygon reduces a closed boundary with the
//     Douglas-Peucker algorithm; OrderCorners labels a quadrilateral
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Foreground is any non-zero pixel.
package detection
