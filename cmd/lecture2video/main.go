package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/ivlev/lecture2video/internal/config"
	"github.com/ivlev/lecture2video/internal/pipeline"
	"github.com/ivlev/lecture2video/internal/rasterize"
	"github.com/ivlev/lecture2video/internal/script"
	"github.com/ivlev/lecture2video/internal/system"
	"github.com/ivlev/lecture2video/internal/video"
)

var buildVersion = "dev"

func main() {
	system.InitResourceLimits()

	dirs := []string{"input/scripts", "input/audio", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "Path to a YAML config file (flags override it)")
	scriptPtr := flag.String("script", "", "Path to the lecture script JSON (default: newest file in input/scripts/)")
	audioPtr := flag.String("audio", "input/audio", "Directory with narration segments and audio_metadata.json")
	outputPtr := flag.String("output", "", "Output video path (default: generated in output/)")
	widthPtr := flag.Int("width", 0, "Canvas width (0 = config/script value)")
	heightPtr := flag.Int("height", 0, "Canvas height (0 = config/script value)")
	fpsPtr := flag.Int("fps", 0, "Frame rate (0 = config value)")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Concurrent step renders")
	presetPtr := flag.String("preset", "", "Aspect preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	encoderPtr := flag.String("encoder", "", "Video encoder (default: best available h264)")
	qualityPtr := flag.Int("quality", 0, "Encoder quality (0 = auto, x264: CRF, VideoToolbox: bitrate = Q*100kbit/s)")
	fontPtr := flag.String("font", "", "TTF/OTF font for text elements (default: bundled Go fonts)")
	materialsPtr := flag.String("materials-url", "", "Append a QR outro step pointing at this URL")
	subtitlesPtr := flag.Bool("subtitles", true, "Burn narration subtitles into the video")
	writeScriptPtr := flag.Bool("write-script", false, "Persist the synchronized script next to the input")
	statsPtr := flag.Bool("stats", false, "Print timing and performance reports")

	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPtr != "" {
		cfg, err = config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Config error: %v", err)
		}
	} else {
		cfg = config.Default()
	}
	cfg.BuildVersion = buildVersion

	if *presetPtr != "" {
		cfg.ApplyPreset(*presetPtr)
	}
	if *widthPtr > 0 {
		cfg.Width = *widthPtr
	}
	if *heightPtr > 0 {
		cfg.Height = *heightPtr
	}
	if *fpsPtr > 0 {
		cfg.FPS = *fpsPtr
	}
	if *workersPtr > 0 {
		cfg.Workers = *workersPtr
	}
	if *fontPtr != "" {
		cfg.FontPath = *fontPtr
	}
	if *materialsPtr != "" {
		cfg.MaterialsURL = *materialsPtr
	}
	if *audioPtr != "" {
		cfg.AudioDir = *audioPtr
	}
	cfg.Subtitles = *subtitlesPtr
	cfg.WriteScript = *writeScriptPtr
	cfg.ShowStats = *statsPtr

	scriptPath := *scriptPtr
	if scriptPath == "" {
		scriptPath = cfg.ScriptPath
	}
	if scriptPath == "" {
		latest, err := system.FindLatestScript("input/scripts")
		if err != nil {
			log.Fatalf("[-] Error: %v. Put a script JSON in input/scripts/", err)
		}
		scriptPath = latest
		fmt.Printf("[*] Selected script: %s\n", scriptPath)
	}
	cfg.ScriptPath = scriptPath

	doc, err := script.Read(scriptPath)
	if err != nil {
		log.Fatalf("[-] Script error: %v", err)
	}

	segments, err := system.LoadAudioSegments(cfg.AudioDir)
	if err != nil {
		log.Fatalf("[-] Audio error: %v. Run the TTS stage first", err)
	}
	audioFiles, err := system.ListAudioFiles(cfg.AudioDir)
	if err != nil {
		log.Printf("[!] No narration files found, output will be silent: %v", err)
		audioFiles = nil
	}

	if *encoderPtr != "" {
		cfg.VideoEncoder = *encoderPtr
	} else {
		cfg.VideoEncoder = system.GetBestH264Encoder()
	}
	if *qualityPtr > 0 {
		cfg.Quality = *qualityPtr
	} else if cfg.Quality == 0 {
		switch cfg.VideoEncoder {
		case "h264_videotoolbox":
			cfg.Quality = 75
		case "h264_nvenc":
			cfg.Quality = 23
		default:
			cfg.Quality = 23
		}
	}
	fmt.Printf("[*] Encoder: %s (quality %d)\n", cfg.VideoEncoder, cfg.Quality)

	if *outputPtr != "" {
		cfg.OutputVideo = *outputPtr
	}
	if cfg.OutputVideo == "" {
		cfg.OutputVideo = fmt.Sprintf("output/lecture_%s.mp4", time.Now().Format("2006-01-02_15-04-05"))
	}

	ras, err := rasterize.NewBoard(cfg.FontPath)
	if err != nil {
		log.Fatalf("[-] Rasterizer error: %v", err)
	}
	enc := &video.FFmpegEncoder{EncoderName: cfg.VideoEncoder, Quality: cfg.Quality}

	project := pipeline.NewProject(cfg, doc, segments, ras, enc)
	project.AudioFiles = audioFiles

	if err := project.Run(context.Background()); err != nil {
		log.Fatalf("[-] Render failed: %v", err)
	}
}
