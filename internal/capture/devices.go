package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/eisenbruch/projector/pkg/ffmpeg"
)

// Screen is a capturable display source.
type Screen struct {
	ID   string
	Name string
	Type string
}

// SourceLister enumerates available capture sources. It sits behind an
// interface because the enumeration strategy is platform-specific; callers
// only ever see structured records.
type SourceLister interface {
	ListScreens(ctx context.Context) ([]Screen, error)
}

// FFmpegSourceLister enumerates screens by running the capture tool in
// device-listing mode and scanning its diagnostic output.
type FFmpegSourceLister struct {
	ffmpegPath string
}

func NewFFmpegSourceLister(ffmpegPath string) *FFmpegSourceLister {
	return &FFmpegSourceLister{ffmpegPath: ffmpegPath}
}

func (l *FFmpegSourceLister) ListScreens(ctx context.Context) ([]Screen, error) {
	cmd := exec.CommandContext(ctx, l.ffmpegPath, ffmpeg.ListDevicesArgs()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg exits nonzero in list mode because no input follows; only a
	// failure to run the binary at all is an error.
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("failed to run device listing: %w", err)
		}
	}

	return parseScreens(stderr.Bytes()), nil
}

var screenLine = regexp.MustCompile(`\[(\d+)\] Capture screen (\d+)`)

// parseScreens extracts screen entries from avfoundation's device table.
func parseScreens(output []byte) []Screen {
	screens := []Screen{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		m := screenLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		screens = append(screens, Screen{
			ID:   m[1],
			Name: "Screen " + m[2],
			Type: "screen",
		})
	}
	return screens
}
