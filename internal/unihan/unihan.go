// Package unihan builds the character dataset from the Unicode Unihan database.
package unihan

import (
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultURL is the latest published Unihan archive.
const DefaultURL = "https://www.unicode.org/Public/UCD/latest/ucd/Unihan.zip"

// Unihan fields consumed by the builder.
const (
	FieldCantonese = "kCantonese"
	FieldBigFive   = "kBigFive"
	FieldFrequency = "kFrequency"
)

// Archive describes a cached Unihan archive.
type Archive struct {
	Path     string
	Filename string
	Cached   bool
}

// Entry collects the fields of one code point.
type Entry struct {
	Codepoint     rune
	Romanizations []string
	BigFive       string
	Frequency     int
}

// Glyph returns the entry's character.
func (e Entry) Glyph() string {
	return string(e.Codepoint)
}

// UCN returns the code point in U+XXXX notation.
func (e Entry) UCN() string {
	return fmt.Sprintf("U+%04X", e.Codepoint)
}

// Download fetches the archive at url into cacheDir. A previously downloaded
// archive is reused unless refresh is set.
func Download(ctx context.Context, cacheDir, url string, refresh bool) (Archive, error) {
	if cacheDir == "" {
		return Archive{}, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Archive{}, fmt.Errorf("failed to create cache dir: %w", err)
	}
	filename := path.Base(url)
	if filename == "" || filename == "." || filename == "/" {
		return Archive{}, fmt.Errorf("cannot derive archive name from %q", url)
	}

	destPath := filepath.Join(cacheDir, filename)
	if !refresh {
		if _, err := os.Stat(destPath); err == nil {
			return Archive{Path: destPath, Filename: filename, Cached: true}, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return Archive{}, fmt.Errorf("failed to stat cached archive: %w", err)
		}
	}

	tmpFile, err := os.CreateTemp(cacheDir, "unihan-*.zip")
	if err != nil {
		return Archive{}, fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	resp, err := httpRequest(ctx, url)
	if err != nil {
		return Archive{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Archive{}, fmt.Errorf("unexpected archive status: %s", resp.Status)
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return Archive{}, fmt.Errorf("failed to download archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return Archive{}, fmt.Errorf("failed to close temp archive: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return Archive{}, fmt.Errorf("failed to move archive into cache: %w", err)
	}
	return Archive{Path: destPath, Filename: filename}, nil
}

func httpRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Extract reads the Cantonese, Big5 and frequency fields from the archive.
// The member files are parsed concurrently.
func Extract(ctx context.Context, archivePath string) (map[rune]*Entry, error) {
	if archivePath == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	var (
		mu      sync.Mutex
		entries = make(map[rune]*Entry)
	)
	set := func(cp rune, field, value string) error {
		mu.Lock()
		defer mu.Unlock()
		return apply(entries, cp, field, value)
	}

	g, ctx := errgroup.WithContext(ctx)
	matched := 0
	for _, file := range reader.File {
		file := file
		if !strings.HasPrefix(path.Base(file.Name), "Unihan_") || !strings.HasSuffix(file.Name, ".txt") {
			continue
		}
		matched++
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file.Name, err)
			}
			defer func() {
				_ = rc.Close()
			}()
			if err := Parse(rc, set); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, fmt.Errorf("no Unihan data files found in %s", archivePath)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("archive contained no %s, %s or %s entries", FieldCantonese, FieldBigFive, FieldFrequency)
	}
	return entries, nil
}

// Parse scans Unihan tab-separated lines ("U+4EBA<TAB>kCantonese<TAB>jan4")
// and calls fn for each line carrying one of the consumed fields.
func Parse(r io.Reader, fn func(cp rune, field, value string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		switch parts[1] {
		case FieldCantonese, FieldBigFive, FieldFrequency:
		default:
			continue
		}
		cp, err := parseCodepoint(parts[0])
		if err != nil {
			return err
		}
		if err := fn(cp, parts[1], strings.TrimSpace(parts[2])); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseCodepoint(ucn string) (rune, error) {
	hex, ok := strings.CutPrefix(ucn, "U+")
	if !ok {
		return 0, fmt.Errorf("invalid code point %q", ucn)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid code point %q: %w", ucn, err)
	}
	return rune(v), nil
}

func apply(entries map[rune]*Entry, cp rune, field, value string) error {
	e, ok := entries[cp]
	if !ok {
		e = &Entry{Codepoint: cp}
		entries[cp] = e
	}
	switch field {
	case FieldCantonese:
		e.Romanizations = strings.Fields(value)
	case FieldBigFive:
		e.BigFive = strings.ToUpper(value)
	case FieldFrequency:
		freq, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q for U+%04X: %w", FieldFrequency, value, cp, err)
		}
		e.Frequency = freq
	}
	return nil
}
