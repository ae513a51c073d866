// Package ffmpeg wraps the ffmpeg command line tool for segment cuts and
// audio extraction.
package ffmpeg
