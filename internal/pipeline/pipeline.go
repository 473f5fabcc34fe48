// Package pipeline drives a full render: synchronize every step's
// duration against the measured narration, rasterize and lay out each
// step, then composite and encode the frame sequences.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/lecture2video/internal/compositor"
	"github.com/ivlev/lecture2video/internal/config"
	"github.com/ivlev/lecture2video/internal/layout"
	"github.com/ivlev/lecture2video/internal/rasterize"
	"github.com/ivlev/lecture2video/internal/script"
	"github.com/ivlev/lecture2video/internal/system"
	"github.com/ivlev/lecture2video/internal/timing"
	"github.com/ivlev/lecture2video/internal/video"
)

// Project ties one script, its measured narration, and the collaborator
// implementations together for a single run.
type Project struct {
	Config     *config.Config
	Doc        *script.Document
	Segments   []script.AudioSegment
	AudioFiles []string
	Rasterizer rasterize.Rasterizer
	Encoder    *video.FFmpegEncoder

	tempDir string
}

func NewProject(cfg *config.Config, doc *script.Document, segments []script.AudioSegment, ras rasterize.Rasterizer, enc *video.FFmpegEncoder) *Project {
	return &Project{
		Config:     cfg,
		Doc:        doc,
		Segments:   segments,
		Rasterizer: ras,
		Encoder:    enc,
	}
}

// Run executes the full pipeline. Synchronization must complete for all
// steps before any layout or rendering starts, because the overlap
// weights depend on the complete set of original step boundaries.
func (p *Project) Run(ctx context.Context) error {
	startTime := time.Now()

	if err := p.Doc.Validate(); err != nil {
		return err
	}

	var err error
	p.tempDir, err = os.MkdirTemp("", "lecture2video_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(p.tempDir)

	// Stage 1: duration synchronization over the whole script.
	revised, report, err := timing.Synchronize(p.Doc, p.Segments, p.Config.Timing)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	report.Log()
	if p.Config.ShowStats {
		fmt.Print(report.Summary())
	}
	doc := timing.Apply(p.Doc, revised)

	if p.Config.MaterialsURL != "" {
		doc.Blackboard.Steps = append(doc.Blackboard.Steps, outroStep(doc, p.Config.MaterialsURL))
	}

	canvasW, canvasH := p.Config.Width, p.Config.Height
	if doc.Blackboard.Resolution[0] > 0 && doc.Blackboard.Resolution[1] > 0 {
		canvasW, canvasH = doc.Blackboard.Resolution[0], doc.Blackboard.Resolution[1]
	}

	fmt.Println("--- [PROJECT: LECTURE ENGINE] ---")
	fmt.Printf("[*] Steps: %d | Narration segments: %d\n", len(doc.Blackboard.Steps), len(p.Segments))
	fmt.Printf("[*] Resolution: %dx%d @ %d FPS\n", canvasW, canvasH, p.Config.FPS)
	fmt.Println("---------------------------------")

	// Stage 2: rasterize and lay out each step.
	for si := range doc.Blackboard.Steps {
		step := &doc.Blackboard.Steps[si]
		p.rasterizeStep(step, canvasW, canvasH)
		laid, rep := layout.LayoutStep(*step, canvasW, canvasH, p.Config.Timing)
		rep.Log()
		*step = laid
	}

	if p.Config.WriteScript {
		outPath := script.SynchronizedPath(p.Config.ScriptPath)
		if err := script.Write(doc, outPath); err != nil {
			log.Printf("[!] Could not persist synchronized script: %v", err)
		} else {
			fmt.Printf("[*] Synchronized script written: %s\n", outPath)
		}
	}

	// Stage 3: render steps concurrently, concatenate in step order.
	renderStart := time.Now()
	background := compositor.NewBlackboardBackground(canvasW, canvasH)
	workers := system.RenderWorkers(p.Config.Workers, canvasW*canvasH*4)

	steps := doc.Blackboard.Steps
	results := make([]string, len(steps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range steps {
		g.Go(func() error {
			segPath := filepath.Join(p.tempDir, fmt.Sprintf("s%d.mp4", i))
			if err := p.renderStep(gctx, &steps[i], background, segPath); err != nil {
				return err
			}
			results[i] = segPath
			fmt.Printf("[>] Ready: step %d/%d\n", i+1, len(steps))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	renderTime := time.Since(renderStart)

	for i, r := range results {
		if r == "" {
			return fmt.Errorf("segment %d was not produced", i)
		}
	}

	// Stage 4: assembly.
	fmt.Println("[*] Assembling final video...")
	concatStart := time.Now()
	current := filepath.Join(p.tempDir, "silent.mp4")
	if err := p.Encoder.Concatenate(ctx, results, current, p.tempDir); err != nil {
		return fmt.Errorf("concatenation failed: %w", err)
	}

	if len(p.AudioFiles) > 0 {
		withAudio := filepath.Join(p.tempDir, "with_audio.mp4")
		if err := p.Encoder.MuxAudio(ctx, current, p.AudioFiles, withAudio, p.tempDir); err != nil {
			return fmt.Errorf("audio mux failed: %w", err)
		}
		current = withAudio
	}

	if p.Config.Subtitles && len(p.Doc.Audio.Narration) > 0 {
		srtPath := filepath.Join(p.tempDir, "subtitles.srt")
		if err := video.WriteSubtitles(p.Doc, p.Segments, srtPath); err != nil {
			log.Printf("[!] Subtitle generation failed: %v", err)
		} else {
			burned := filepath.Join(p.tempDir, "subtitled.mp4")
			if err := p.Encoder.BurnSubtitles(ctx, current, srtPath, burned); err != nil {
				log.Printf("[!] Subtitle burn-in failed, keeping plain video: %v", err)
			} else {
				current = burned
			}
		}
	}

	if err := os.Rename(current, p.Config.OutputVideo); err != nil {
		// Rename fails across filesystems, fall back to a copy.
		data, readErr := os.ReadFile(current)
		if readErr != nil {
			return readErr
		}
		if err := os.WriteFile(p.Config.OutputVideo, data, 0644); err != nil {
			return err
		}
	}

	if p.Config.ShowStats {
		p.writeStats(startTime, renderTime, time.Since(concatStart), len(steps))
	}

	fmt.Printf("[+++] Done: %s\n", p.Config.OutputVideo)
	return nil
}

// rasterizeStep fills in each element's bitmap and fractional size.
// Rasterization failures leave the element bitmap-less; layout and the
// compositor skip it with a warning rather than failing the run.
func (p *Project) rasterizeStep(step *script.Step, canvasW, canvasH int) {
	for ei := range step.Elements {
		el := &step.Elements[ei]
		img, err := p.Rasterizer.Rasterize(el)
		if err != nil {
			log.Printf("[!] Step %d: rasterizing %s element: %v", step.ID, el.Kind, err)
			continue
		}
		el.Bitmap = img
		el.Size = [2]float64{
			float64(img.Bounds().Dx()) / float64(canvasW),
			float64(img.Bounds().Dy()) / float64(canvasH),
		}
	}
}

func (p *Project) renderStep(ctx context.Context, step *script.Step, background *image.RGBA, segPath string) error {
	w, err := p.Encoder.StartStep(ctx, segPath, background.Bounds().Dx(), background.Bounds().Dy(), p.Config.FPS)
	if err != nil {
		return fmt.Errorf("step %d: %w", step.ID, err)
	}
	if err := compositor.RenderStep(step, p.Config.FPS, background, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// outroStep builds the QR card step appended when a materials URL is
// configured. It carries its own fixed duration since no narration maps
// to it.
func outroStep(doc *script.Document, url string) script.Step {
	maxID := 0
	for _, s := range doc.Blackboard.Steps {
		if s.ID > maxID {
			maxID = s.ID
		}
	}
	fade := 0.5
	return script.Step{
		ID:       maxID + 1,
		Title:    "materials",
		Duration: 4.0,
		Layout:   "vertical-stack",
		Elements: []script.Element{
			{
				Kind:      script.KindText,
				Content:   "Course materials",
				FontSize:  40,
				Animation: &script.Animation{Enter: "fade_in", Duration: fade},
			},
			{
				Kind:      script.KindQR,
				Content:   url,
				Animation: &script.Animation{Enter: "fade_in", Duration: fade},
			},
		},
	}
}

func (p *Project) writeStats(start time.Time, renderTime, concatTime time.Duration, stepCount int) {
	totalTime := time.Since(start)
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Assembly: %.2fs\n"+
			"Steps/s: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, totalTime.Seconds(), renderTime.Seconds(), concatTime.Seconds(),
		float64(stepCount)/totalTime.Seconds(),
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Script: %s | Steps: %d | Total: %.2fs | Render: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.ScriptPath),
		stepCount,
		totalTime.Seconds(),
		renderTime.Seconds(),
	)
	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		log.Printf("[!] Could not write benchmark.log: %v", err)
	}
}
