package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// FFmpegEncoder is the encoder collaborator: it receives per-frame
// canvases for a step, owns container writing, and concatenates the
// per-step segments into the final video.
type FFmpegEncoder struct {
	EncoderName string
	Quality     int
}

// StepWriter streams one step's frames into a running ffmpeg process as
// raw RGBA. It satisfies the compositor's frame sink.
type StepWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output *bytes.Buffer
	path   string
}

// StartStep launches an ffmpeg process encoding one step segment.
func (e *FFmpegEncoder) StartStep(ctx context.Context, path string, width, height, fps int) (*StepWriter, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-r", fmt.Sprintf("%d", fps),
		"-pix_fmt", "yuv420p",
		"-c:v", e.EncoderName,
	}
	args = append(args, e.qualityArgs()...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return &StepWriter{cmd: cmd, stdin: stdin, output: &out, path: path}, nil
}

// WriteFrame pushes one composited frame to the encoder. The buffer may
// be reused by the caller once the call returns.
func (w *StepWriter) WriteFrame(frame *image.RGBA) error {
	if frame.Stride != frame.Bounds().Dx()*4 || frame.Rect.Min != (image.Point{}) {
		return fmt.Errorf("frame buffer must be zero-origin with packed stride")
	}
	_, err := w.stdin.Write(frame.Pix)
	return err
}

// Close finishes the segment and waits for ffmpeg to exit.
func (w *StepWriter) Close() error {
	w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error for %s: %v\nlog: %s", w.path, err, w.output.String())
	}
	return nil
}

func (e *FFmpegEncoder) qualityArgs() []string {
	switch e.EncoderName {
	case "h264_videotoolbox":
		// VideoToolbox does not reliably support -q:v, use bitrate.
		return []string{"-b:v", fmt.Sprintf("%dk", e.Quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", e.Quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", e.Quality), "-preset", "medium"}
	}
}

// Concatenate joins the per-step segments in step order without
// re-encoding.
func (e *FFmpegEncoder) Concatenate(ctx context.Context, segmentPaths []string, finalPath, tmpDir string) error {
	concatFilePath := filepath.Join(tmpDir, "inputs.txt")
	f, err := os.Create(concatFilePath)
	if err != nil {
		return err
	}
	for _, p := range segmentPaths {
		absPath, _ := filepath.Abs(p)
		fmt.Fprintf(f, "file '%s'\n", absPath)
	}
	f.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat", "-safe", "0", "-i", concatFilePath,
		"-c", "copy", finalPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat error: %v, output: %s", err, string(out))
	}
	return nil
}

// MuxAudio concatenates the narration segment files and muxes them under
// the video track.
func (e *FFmpegEncoder) MuxAudio(ctx context.Context, videoPath string, audioPaths []string, finalPath, tmpDir string) error {
	listPath := filepath.Join(tmpDir, "audio_inputs.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return err
	}
	for _, p := range audioPaths {
		absPath, _ := filepath.Abs(p)
		fmt.Fprintf(f, "file '%s'\n", absPath)
	}
	f.Close()

	mergedAudio := filepath.Join(tmpDir, "narration.wav")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", mergedAudio,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio concat error: %v, output: %s", err, string(out))
	}

	cmd = exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-i", mergedAudio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		finalPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %v, output: %s", err, string(out))
	}
	return nil
}

// BurnSubtitles renders an SRT file into the video stream.
func (e *FFmpegEncoder) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, finalPath string) error {
	style := "Fontsize=24,PrimaryColour=&HFFFFFF&,OutlineColour=&H000000&,BorderStyle=3"
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles=%s:force_style='%s'", subtitlePath, style),
		"-c:a", "copy",
		finalPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg subtitle error: %v, output: %s", err, string(out))
	}
	return nil
}
