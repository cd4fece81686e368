// Package rectify flattens a photographed page given its four corners.
//
// The output size is the bounding box of the corners. Corner i is paired
// with output corner i of (0,0), (W,0), (W,H), (0,H) without any reordering,
// so the caller controls orientation through the order of the quad.
//
// The transform is the exact projective map for the four correspondences,
// built as a composition of two square-to-quadrilateral transforms. Output
// pixels are inverse-mapped and sampled bilinearly.
package rectify
