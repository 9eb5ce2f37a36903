// Package dataset loads the character data used for practice.
package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

// Asset file names inside a data directory.
const (
	CharactersFile = "data.json"
	FrequencyFile  = "common_words.txt"
	Big5MapFile    = "big5_map.txt"
)

const lookupEndpoint = "https://humanum.arts.cuhk.edu.hk/Lexis/lexi-can/search.php"

// Paths locates the three dataset assets.
type Paths struct {
	Characters string
	Frequency  string
	Big5Map    string
}

// PathsIn returns the asset paths inside dir.
func PathsIn(dir string) Paths {
	return Paths{
		Characters: filepath.Join(dir, CharactersFile),
		Frequency:  filepath.Join(dir, FrequencyFile),
		Big5Map:    filepath.Join(dir, Big5MapFile),
	}
}

// Dataset is the immutable, in-memory character data.
type Dataset struct {
	records  map[string]model.CharacterRecord
	glyphs   []string
	position map[string]int
	big5     []string
}

// New builds a Dataset from already parsed parts. glyphs is the frequency
// ordered list and big5 is positionally aligned with it.
func New(records []model.CharacterRecord, glyphs []string, big5 []string) *Dataset {
	d := &Dataset{
		records:  make(map[string]model.CharacterRecord, len(records)),
		glyphs:   glyphs,
		position: make(map[string]int, len(glyphs)),
		big5:     big5,
	}
	for _, r := range records {
		if _, dup := d.records[r.Glyph]; dup {
			continue
		}
		d.records[r.Glyph] = r
	}
	for i, g := range glyphs {
		if _, dup := d.position[g]; !dup {
			d.position[g] = i
		}
	}
	return d
}

// Load reads the three assets concurrently. Any failure is returned with the
// offending file named.
func Load(ctx context.Context, paths Paths) (*Dataset, error) {
	var (
		records []model.CharacterRecord
		glyphs  []string
		big5    []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = loadFile(ctx, paths.Characters, ParseCharacters)
		return err
	})
	g.Go(func() error {
		var err error
		glyphs, err = loadFile(ctx, paths.Frequency, ParseFrequency)
		return err
	})
	g.Go(func() error {
		var err error
		big5, err = loadFile(ctx, paths.Big5Map, ParseBig5Map)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("%s: frequency list is empty", paths.Frequency)
	}
	return New(records, glyphs, big5), nil
}

func loadFile[T any](ctx context.Context, path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	file, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only asset.
			_ = cerr
		}
	}()
	out, err := parse(file)
	if err != nil {
		return zero, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return out, nil
}

// ParseCharacters decodes a JSON array of character records.
func ParseCharacters(r io.Reader) ([]model.CharacterRecord, error) {
	var records []model.CharacterRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseFrequency splits the frequency text into glyphs, dropping anything
// that is not a Han character.
func ParseFrequency(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	glyphs := make([]string, 0, len(raw)/3)
	for _, ch := range string(raw) {
		if !keepGlyph(ch) {
			continue
		}
		glyphs = append(glyphs, string(ch))
	}
	return glyphs, nil
}

func keepGlyph(ch rune) bool {
	return unicode.Is(unicode.Han, ch)
}

// ParseBig5Map reads one lookup code per line, skipping blank lines.
func ParseBig5Map(r io.Reader) ([]string, error) {
	var codes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		codes = append(codes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// Lookup returns the record for glyph.
func (d *Dataset) Lookup(glyph string) (model.CharacterRecord, bool) {
	r, ok := d.records[glyph]
	return r, ok
}

// Glyphs returns the frequency ordered glyph list. Callers must not modify it.
func (d *Dataset) Glyphs() []string {
	return d.glyphs
}

// Len returns the length of the frequency list.
func (d *Dataset) Len() int {
	return len(d.glyphs)
}

// Records returns the number of character records.
func (d *Dataset) Records() int {
	return len(d.records)
}

// Range returns the glyphs selected by r.
func (d *Dataset) Range(r model.PracticeRange) []string {
	start, end := r.Bounds(len(d.glyphs))
	return d.glyphs[start:end]
}

// Big5 returns the URL-ready Big5 query for glyph: the map entry aligned with
// the glyph's frequency position, otherwise the glyph encoded as Big5.
func (d *Dataset) Big5(glyph string) (string, error) {
	if i, ok := d.position[glyph]; ok && i < len(d.big5) {
		return d.big5[i], nil
	}
	return EncodeBig5(glyph)
}

// EncodeBig5 encodes glyph as Big5 and escapes it for a query string.
func EncodeBig5(glyph string) (string, error) {
	encoded, err := traditionalchinese.Big5.NewEncoder().String(glyph)
	if err != nil {
		return "", fmt.Errorf("no Big5 encoding for %q: %w", glyph, err)
	}
	return url.QueryEscape(encoded), nil
}

// LookupURL builds the external dictionary URL for glyph.
func (d *Dataset) LookupURL(glyph string) (string, error) {
	if glyph == "" {
		return "", fmt.Errorf("no character selected")
	}
	code, err := d.Big5(glyph)
	if err != nil {
		return "", err
	}
	return lookupEndpoint + "?q=" + code, nil
}
