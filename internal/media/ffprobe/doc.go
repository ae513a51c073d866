// Package ffprobe shells out to ffprobe for container duration lookups.
package ffprobe
