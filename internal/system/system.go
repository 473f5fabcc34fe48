package system

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/lecture2video/internal/script"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read open-file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not raise open-file limit: %v", err)
	} else {
		fmt.Printf("[*] Open-file limit raised to %d\n", rLimit.Cur)
	}
}

// FindLatestScript returns the newest .json script in a directory.
func FindLatestScript(dir string) (string, error) {
	return findLatest(dir, []string{".json"})
}

func findLatest(dir string, extensions []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestMod int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		matched := false
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().UnixNano() > latestMod {
			latestMod = info.ModTime().UnixNano()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no matching files in %s", dir)
	}
	return latestFile, nil
}

// GetAudioDuration measures one audio file with ffprobe.
func GetAudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, err
	}

	return duration, nil
}

// audioMetadataEntry matches the metadata file the TTS stage writes next
// to its segment files.
type audioMetadataEntry struct {
	Path      string  `json:"path"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
}

// LoadAudioSegments returns the measured narration segments for a run,
// in document order. It prefers the TTS stage's audio_metadata.json and
// falls back to probing the segment files directly with ffprobe.
func LoadAudioSegments(dir string) ([]script.AudioSegment, error) {
	metaPath := filepath.Join(dir, "audio_metadata.json")
	if data, err := os.ReadFile(metaPath); err == nil {
		var entries []audioMetadataEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", metaPath, err)
		}
		segments := make([]script.AudioSegment, 0, len(entries))
		for _, e := range entries {
			d := e.Duration
			if d == 0 {
				d = e.EndTime - e.StartTime
			}
			segments = append(segments, script.AudioSegment{
				Start:    e.StartTime,
				End:      e.EndTime,
				Duration: d,
			})
		}
		return segments, nil
	}

	paths, err := ListAudioFiles(dir)
	if err != nil {
		return nil, err
	}

	segments := make([]script.AudioSegment, 0, len(paths))
	cursor := 0.0
	for _, p := range paths {
		d, err := GetAudioDuration(p)
		if err != nil {
			log.Printf("[!] Could not measure %s: %v", p, err)
			continue
		}
		segments = append(segments, script.AudioSegment{
			Start:    cursor,
			End:      cursor + d,
			Duration: d,
		})
		cursor += d
	}
	return segments, nil
}

// ListAudioFiles returns the narration segment files in a directory,
// sorted by name so document order is preserved.
func ListAudioFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	extensions := []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
	var paths []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				paths = append(paths, filepath.Join(dir, f.Name()))
				break
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no audio segments in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// RenderWorkers sizes the step-render pool: bounded by the configured
// worker count, the logical CPU count, and what fits in available memory
// at three frame buffers per worker.
func RenderWorkers(configured, frameBytes int) int {
	workers := configured

	if counts, err := cpu.Counts(true); err == nil && counts < workers {
		workers = counts
	}

	if vm, err := mem.VirtualMemory(); err == nil && frameBytes > 0 {
		byMem := int(vm.Available / uint64(frameBytes*3))
		if byMem < 1 {
			byMem = 1
		}
		if byMem < workers {
			log.Printf("[!] Limiting render workers to %d (available memory)", byMem)
			workers = byMem
		}
	}

	if workers < 1 {
		workers = 1
	}
	return workers
}

func GetBestH264Encoder() string {
	// Preference order: VideoToolbox (macOS), NVENC (NVIDIA), then
	// software libx264.
	encoders := []string{"h264_videotoolbox", "h264_nvenc"}

	for _, enc := range encoders {
		cmd := exec.Command("ffmpeg", "-encoders")
		out, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(out), enc) {
			return enc
		}
	}

	return "libx264"
}
