// Package geometry provides the integer polygon primitives shared by the
// outline detector and the perspective rectifier.
//
// All coordinates are in frame space: (0,0) is the top-left pixel, X grows
// rightward and Y grows downward. A Contour is an ordered, implicitly closed
// polygon; its last point connects back to its first.
//
// # Operations
//
//   - Area: shoelace area of a closed contour
//   - ArcLength: perimeter of an open or closed polyline
//   - BoundingRect: axis-aligned bounding box of a point set
//   - ApproxPolyDP: Douglas-Peucker simplification of a closed contour
//
// Functions in this package never modify their input slices.
package geometry
