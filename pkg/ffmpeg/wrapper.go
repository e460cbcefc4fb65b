package ffmpeg

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Output names inside the segment directory. The manifest is the rotating
// playlist viewers poll; segments rotate through seg000.ts, seg001.ts, ...
const (
	ManifestName   = "stream.m3u8"
	SegmentPattern = "seg%03d.ts"
)

// CheckInstallation verifies the capture binary is installed and accessible.
func CheckInstallation(path string) error {
	cmd := exec.Command(path, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s is not installed or not in PATH: %w", path, err)
	}
	return nil
}

// CaptureOptions configures a screen-capture invocation.
type CaptureOptions struct {
	SourceID   string
	FrameRate  int
	SegmentDir string
}

// CaptureArgs builds the argument list for capturing a screen to a rotating
// HLS stream: avfoundation input with cursor drawing, the videotoolbox
// hardware encoder, and a short three-segment playlist with old segments
// deleted as new independent ones are written.
func CaptureArgs(opts CaptureOptions) []string {
	fps := strconv.Itoa(opts.FrameRate)
	return []string{
		"-f", "avfoundation",
		"-framerate", fps,
		"-capture_cursor", "1",
		"-i", opts.SourceID + ":none",
		"-enc_time_base", "1/" + fps,
		"-c:v", "h264_videotoolbox",
		"-b:v", "3M",
		"-g", fps,
		"-f", "hls",
		"-hls_time", "1",
		"-hls_list_size", "3",
		"-hls_flags", "delete_segments+independent_segments",
		"-hls_segment_filename", filepath.Join(opts.SegmentDir, SegmentPattern),
		filepath.Join(opts.SegmentDir, ManifestName),
	}
}

// ListDevicesArgs builds the argument list for device enumeration. In this
// mode ffmpeg writes the device table to stderr and exits nonzero.
func ListDevicesArgs() []string {
	return []string{
		"-hide_banner",
		"-f", "avfoundation",
		"-list_devices", "true",
		"-i", "",
	}
}
