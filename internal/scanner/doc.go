// Package scanner assembles outline detection and rectification into a
// scanning session.
//
// A Session previews frames, captures pages on request and keeps them in an
// ordered PageList. Each captured page is the rectified document region
// encoded as JPEG. SavePages writes a list of pages to disk as
// page-001.jpg, page-002.jpg and so on.
package scanner
