// Package logtail reads the tail of carradio's own log file for the
// diagnostics pane.
//
// # Overview
//
// The TUI cannot print to the terminal while Bubble Tea owns it, so the
// logging package writes to a file and the diagnostics pane reads it back.
// Read extracts the last N lines; Parse splits each line into timestamp, level
// and message so the UI can style levels and list problems separately.
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines:
//	   - Return first 'count' entries from buffer
//	4. If total >= maxLines:
//	   - Return buffer starting from current index (oldest line)
//
// A non-positive maxLines reads the whole file. A missing file returns
// nil, nil because the log may not have been written yet.
//
// # Line Format
//
//	2026/10/19 21:01:05 [WARN] Skipping malformed favorite entry with id: x
//
// Lines without a level tag (panics, third-party output) parse as a bare
// Message.
package logtail
