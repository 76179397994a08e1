package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"market-crafter/internal/logger"
)

// document is the on-disk form of a snapshot: items as a list rather than
// a map so files stay diffable.
type document struct {
	Items  []*Item  `json:"items"`
	TopIDs []ItemID `json:"top_ids"`
}

// Decode reads a JSON snapshot document.
func Decode(r io.Reader) (*Snapshot, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap := NewSnapshot(doc.Items, doc.TopIDs)
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("validate snapshot: %w", err)
	}
	return snap, nil
}

// Encode writes snap as a JSON snapshot document.
func Encode(w io.Writer, snap *Snapshot) error {
	doc := document{TopIDs: snap.TopIDs}
	for _, id := range snap.SortedIDs() {
		doc.Items = append(doc.Items, snap.Items[id])
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// LoadFile loads a snapshot from a .json document, or from a directory of
// JSONL files (see LoadJSONL).
func LoadFile(path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadJSONL(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// LoadJSONL loads items.jsonl (one Item per line) and the optional
// top_ids.jsonl (one id per line) from dir. Malformed lines are skipped.
func LoadJSONL(dir string) (*Snapshot, error) {
	var items []*Item
	err := readJSONL(dir, "items", func(raw json.RawMessage) error {
		var it Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return err
		}
		items = append(items, &it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	var top []ItemID
	err = readJSONL(dir, "top_ids", func(raw json.RawMessage) error {
		var id ItemID
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		top = append(top, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load top ids: %w", err)
	}

	snap := NewSnapshot(items, top)
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("validate snapshot: %w", err)
	}
	logger.Info("Catalog", fmt.Sprintf("Loaded %d items, %d top ids from %s", len(items), len(top), dir))
	return snap, nil
}

// readJSONL finds baseName.jsonl under dir and calls fn for every line.
func readJSONL(dir, baseName string, fn func(json.RawMessage) error) error {
	var filePath string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		name := strings.TrimSuffix(info.Name(), ".jsonl")
		if !info.IsDir() && strings.EqualFold(name, baseName) {
			filePath = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return err
	}
	if filePath == "" {
		logger.Warn("Catalog", fmt.Sprintf("File %s.jsonl not found, skipping", baseName))
		return nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(json.RawMessage(line)); err != nil {
			skipped++
		}
	}
	if skipped > 0 {
		logger.Warn("Catalog", fmt.Sprintf("Skipped %d malformed lines in %s", skipped, filePath))
	}
	return scanner.Err()
}
