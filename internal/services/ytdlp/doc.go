// Package ytdlp wraps the yt-dlp command line tool for asset downloads and
// metadata lookups, classifying failures as transient or permanent.
package ytdlp
