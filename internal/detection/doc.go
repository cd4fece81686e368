// Package detection finds the outline of a document in a camera frame.
//
// The Detector runs a fixed pipeline over each frame:
//
//  1. Edge map: grayscale, 5x5 Gaussian blur and Canny with thresholds 75/200
//     (see package imaging)
//  2. Border tracing: Suzuki-Abe border following over the edge map, producing
//     outer borders and holes with straight runs compressed to endpoints
//  3. Selection: the border enclosing the largest area; on equal areas the
//     first border met by the raster scan wins
//  4. Approximation: Douglas-Peucker with a tolerance of 2% of the selected
//     border's perimeter
//
// The Detector returns both the selected border and its approximation. It
// does not judge the vertex count: callers treat a 4-vertex approximation as
// a document candidate and anything else as "no document in this frame".
//
// # Coordinate System
//
// Points are pixel coordinates relative to the frame's top-left corner:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Limitations
//
// The pipeline has no notion of paper: on busy backgrounds the largest
// closed edge loop may be a table edge, a screen or a picture frame.
// High-contrast pages on plain backgrounds work best.
package detection
