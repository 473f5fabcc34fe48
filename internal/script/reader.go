package script

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Read loads a script document from a JSON file. Elements with an
// unknown type are dropped with a warning rather than failing the load.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}

	for si := range doc.Blackboard.Steps {
		step := &doc.Blackboard.Steps[si]
		kept := step.Elements[:0]
		for _, el := range step.Elements {
			if !el.Kind.Known() {
				log.Printf("[!] Step %d: unknown element type %q, element skipped", step.ID, el.Kind)
				continue
			}
			if el.Position != nil && len(el.Position) != 2 {
				log.Printf("[!] Step %d: malformed position for %s element, treating as unset", step.ID, el.Kind)
				el.Position = nil
			}
			kept = append(kept, el)
		}
		step.Elements = kept
	}

	return &doc, nil
}

// Write persists a script document as indented JSON.
func Write(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SynchronizedPath derives the output path for a synchronized copy of
// the document, next to the original.
func SynchronizedPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	return base + "_synchronized" + ext
}
