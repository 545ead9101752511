// Package imaging provides the pixel-level operations of the grading
// pipeline.
//
// Everything here works on standard Go image types. Processing stages pass
// *image.Gray buffers whose bounds start at (0, 0); Gray normalizes any
// decoded image into that form. No function mutates its input; each returns a
// newly allocated buffer.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Regions are
// image.Rectangle values with an inclusive Min and an exclusive Max.
//
// # Operations
//
//   - Loading: ImageCache, Decode, LoadImageInfo, ImageFiles
//   - Grayscale and local contrast: Gray, CLAHE
//   - Edges: Canny, SobelX, VerticalEdges
//   - Binarization: AdaptiveMean, Integral.InkFraction, Blur, Invert
//   - Geometry: Rotate, Homography, WarpPerspective
//   - Region statistics: RegionMean, RegionFraction
//   - Output: Outline, Guides, Label, EncodePNG, CropRegion
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and may be called concurrently on different images.
package imaging
