// Package media wraps the ffmpeg/ffprobe binaries behind a Muxer interface
// so export and audio analysis never shell out directly.
package media

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type Muxer interface {
	Probe(ctx context.Context) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ImageToClip(ctx context.Context, imagePath string, duration float64, width, height, fps int, outPath string) error
	Concat(ctx context.Context, clips []string, audioPath, outPath string) error
	Trim(ctx context.Context, clipPath string, targetDuration float64, outPath string) error
	SpeedAdjust(ctx context.Context, clipPath string, factor float64, outPath string) error
	Thumbnail(ctx context.Context, imagePath, outPath string, maxWidth int) error
	DecodePCM(ctx context.Context, audioPath string, sampleRate int) ([]float64, error)
}

type ffmpegMuxer struct {
	log         *logger.Logger
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

func NewFFmpegMuxer(log *logger.Logger) Muxer {
	return &ffmpegMuxer{
		log:         log.With("service", "FFmpegMuxer"),
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		timeout:     10 * time.Minute,
	}
}

func (m *ffmpegMuxer) Probe(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("required binary %q not found in PATH: %w", bin, err)
		}
	}
	return nil
}

func (m *ffmpegMuxer) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w; out=%s", bin, err, truncateOut(out))
	}
	return out, nil
}

func truncateOut(out []byte) string {
	s := string(out)
	if len(s) > 500 {
		s = s[len(s)-500:]
	}
	return s
}

// ProbeDuration reads the container duration, falling back to the first
// stream that carries one.
func (m *ffmpegMuxer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := m.run(ctx, m.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return 0, err
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			Duration string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil && d > 0 {
		return d, nil
	}
	for _, s := range probe.Streams {
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, fmt.Errorf("no duration in %s: %w", path, apperr.ErrInvalidArgument)
}

// ImageToClip renders a still into an MP4 of the given length, scaled to fit
// and padded to the exact target resolution.
func (m *ffmpegMuxer) ImageToClip(ctx context.Context, imagePath string, duration float64, width, height, fps int, outPath string) error {
	if duration <= 0 {
		return fmt.Errorf("clip duration must be positive: %w", apperr.ErrInvalidArgument)
	}
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		width, height, width, height,
	)
	_, err := m.run(ctx, m.ffmpegPath,
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", vf,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		outPath,
	)
	return err
}

// Concat joins clips through a concat-demuxer manifest and muxes the audio
// track, truncating the result to the shorter of the two.
func (m *ffmpegMuxer) Concat(ctx context.Context, clips []string, audioPath, outPath string) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to concatenate: %w", apperr.ErrInvalidArgument)
	}
	manifest := filepath.Join(filepath.Dir(outPath), "concat_list.txt")
	var sb strings.Builder
	for _, clip := range clips {
		// The concat demuxer wants forward slashes even on Windows.
		sb.WriteString(fmt.Sprintf("file '%s'\n", filepath.ToSlash(clip)))
	}
	if err := os.WriteFile(manifest, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	defer os.Remove(manifest)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
	}
	if audioPath != "" {
		args = append(args,
			"-i", audioPath,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "23",
			"-c:a", "aac",
			"-b:a", "192k",
			"-map", "0:v",
			"-map", "1:a",
			"-shortest",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, outPath)
	_, err := m.run(ctx, m.ffmpegPath, args...)
	return err
}

// Trim cuts a clip to targetDuration with a stream copy, preserving the
// original frames without re-encoding.
func (m *ffmpegMuxer) Trim(ctx context.Context, clipPath string, targetDuration float64, outPath string) error {
	_, err := m.run(ctx, m.ffmpegPath,
		"-y",
		"-i", clipPath,
		"-t", fmt.Sprintf("%.3f", targetDuration),
		"-c", "copy",
		outPath,
	)
	return err
}

// SpeedAdjust rescales presentation timestamps by 1/factor, where factor is
// the ratio of source duration to wanted duration: a clip of length d plays
// in d/factor seconds afterwards. factor > 1 speeds the clip up.
func (m *ffmpegMuxer) SpeedAdjust(ctx context.Context, clipPath string, factor float64, outPath string) error {
	if factor <= 0 {
		return fmt.Errorf("speed factor must be positive: %w", apperr.ErrInvalidArgument)
	}
	_, err := m.run(ctx, m.ffmpegPath,
		"-y",
		"-i", clipPath,
		"-filter:v", fmt.Sprintf("setpts=PTS/%.4f", factor),
		"-an",
		outPath,
	)
	return err
}

// Thumbnail writes a WebP preview capped at maxWidth.
func (m *ffmpegMuxer) Thumbnail(ctx context.Context, imagePath, outPath string, maxWidth int) error {
	if maxWidth <= 0 {
		maxWidth = 480
	}
	_, err := m.run(ctx, m.ffmpegPath,
		"-y",
		"-i", imagePath,
		"-vf", fmt.Sprintf("scale='min(%d,iw)':-2", maxWidth),
		"-c:v", "libwebp",
		"-quality", "80",
		outPath,
	)
	return err
}

// DecodePCM decodes an audio file to mono float samples at the requested
// rate, for local beat analysis.
func (m *ffmpegMuxer) DecodePCM(ctx context.Context, audioPath string, sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		sampleRate = 11025
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-v", "error",
		"-i", audioPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	)
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg pcm decode failed: %w", err)
	}
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples, nil
}
