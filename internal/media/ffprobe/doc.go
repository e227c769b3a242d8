// Package ffprobe shells out to ffprobe and decodes its JSON report into
// typed container metadata. It is the only place probe output is parsed.
package ffprobe
