// Package preview runs outline detection continuously over a stream of
// frames, the way a scanner app tracks the page in its viewfinder.
//
// A Loop ticks at a fixed rate, takes the current frame from a FrameSource
// and hands it to a single detection worker. Frames that arrive while the
// worker is busy are dropped and counted. Sources are provided for a single
// still frame and for a directory of captured frames.
package preview
