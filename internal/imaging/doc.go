// Package imaging loads, converts and encodes the frames the scanner works
// on, and builds the edge map the outline detector traces.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner
// of the frame's bounds: X increases rightward and Y downward. Functions
// that take frames with a non-zero bounds origin translate them first, so
// results are always relative to the frame's own top-left.
//
// # Edge Map
//
// EdgeMap is the first half of outline detection: grayscale conversion,
// Gaussian blur and Canny hysteresis with the thresholds in EdgeOptions.
// The result is a binary image with 255 on edge pixels and 0 elsewhere.
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. The other functions are stateless
// and never modify their input.
package imaging
