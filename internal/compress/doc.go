// Package compress shrinks evidence files to fit upload size budgets before
// they are persisted and queued for sync.
//
// Images are resized and re-encoded as JPEG through a descending quality
// ladder. Video and audio are transcoded with ffmpeg using a bitrate computed
// from the size budget and the container duration, with one reduced-bitrate
// retry when the first pass overshoots. Documents pass through untouched.
//
// Compression never loses evidence: when an encoder fails or produces a file
// larger than the original, the original file is kept and queued as-is.
package compress
