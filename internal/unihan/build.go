package unihan

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verte-zerg/jyutdrill/internal/dataset"
	"github.com/verte-zerg/jyutdrill/internal/model"
)

// Assets is the content of the three dataset files.
type Assets struct {
	Records []model.CharacterRecord
	Glyphs  []string
	Big5    []string
}

// Build converts extracted entries to dataset assets. Records cover every
// entry with a Cantonese reading; the frequency list holds entries with a
// frequency rank, most frequent first, truncated to limit when limit > 0.
func Build(entries map[rune]*Entry, limit int) (Assets, error) {
	all := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Codepoint < all[j].Codepoint
	})

	var assets Assets
	ranked := make([]*Entry, 0, len(all))
	for _, e := range all {
		if len(e.Romanizations) > 0 {
			assets.Records = append(assets.Records, model.CharacterRecord{
				Glyph:         e.Glyph(),
				Codepoint:     e.UCN(),
				Romanizations: e.Romanizations,
				Big5:          big5Query(e),
			})
		}
		if e.Frequency > 0 && len(e.Romanizations) > 0 {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency < ranked[j].Frequency
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for _, e := range ranked {
		assets.Glyphs = append(assets.Glyphs, e.Glyph())
		assets.Big5 = append(assets.Big5, big5Query(e))
	}
	if len(assets.Glyphs) == 0 {
		return Assets{}, fmt.Errorf("no ranked characters with Cantonese readings found")
	}
	return assets, nil
}

// big5Query returns the URL-escaped Big5 bytes of e. Without a kBigFive value
// it encodes the glyph, and as a last resort escapes its UTF-8 form so the
// map stays aligned line by line.
func big5Query(e *Entry) string {
	if raw, err := hex.DecodeString(e.BigFive); err == nil && len(raw) > 0 {
		return url.QueryEscape(string(raw))
	}
	if q, err := dataset.EncodeBig5(e.Glyph()); err == nil {
		return q
	}
	return url.QueryEscape(e.Glyph())
}

// ErrExists is returned when an asset exists and overwriting was not requested.
var ErrExists = errors.New("dataset file already exists")

// WriteAssets writes the three asset files into dir. Each file is replaced
// atomically.
func WriteAssets(dir string, assets Assets, force bool) error {
	paths := dataset.PathsIn(dir)
	if !force {
		for _, p := range []string{paths.Characters, paths.Frequency, paths.Big5Map} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, p)
			} else if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to stat %s: %w", p, err)
			}
		}
	}
	if err := writeAtomic(paths.Characters, func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(assets.Records)
	}); err != nil {
		return err
	}
	if err := writeAtomic(paths.Frequency, writeLines(assets.Glyphs)); err != nil {
		return err
	}
	return writeAtomic(paths.Big5Map, writeLines(assets.Big5))
}

func writeLines(lines []string) func(*bufio.Writer) error {
	return func(w *bufio.Writer) error {
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeAtomic(path string, write func(*bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := write(writer); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteAttribution writes the data source notice next to the assets.
func WriteAttribution(dir, source string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	text := strings.Join([]string{
		"Character data generated from the Unicode Han Database (Unihan).",
		"Source: " + source,
		"Fields: kCantonese, kBigFive, kFrequency.",
		"License: Unicode License v3, https://www.unicode.org/license.txt",
		"Changes were made: filtered to characters with Cantonese readings and ordered by kFrequency.",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "ATTRIBUTION.txt"), []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write attribution: %w", err)
	}
	return nil
}
