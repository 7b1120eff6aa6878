package corpus

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/item"
)

// Separator splits a line into prompt and response.
const Separator = " -- "

// BuiltinName is the source name reported for the embedded deck.
const BuiltinName = "builtin:hiragana"

//go:embed hiragana.txt
var hiragana string

// Pair is one parsed line before identities and weights are assigned.
type Pair struct {
	Prompt   string
	Response string
	Line     int
}

// Load reads the corpus at path. An empty path loads the embedded hiragana deck.
func Load(path string) ([]*item.Item, error) {
	if path == "" {
		return Parse(strings.NewReader(hiragana), BuiltinName)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("open corpus: %w", err))
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads pairs from r and builds items with sequential identities from 0
// and uniform importance 1/n. source is used in error messages only.
func Parse(r io.Reader, source string) ([]*item.Item, error) {
	pairs, err := ParsePairs(r, source)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, errors.NewEmptyCorpus()
	}

	p := 1 / float64(len(pairs))
	items := make([]*item.Item, len(pairs))
	for i, pair := range pairs {
		items[i] = item.New(i, pair.Prompt, pair.Response, p)
	}
	return items, nil
}

// ParsePairs splits every non-blank line of r on Separator. Any malformed
// line fails the whole parse.
func ParsePairs(r io.Reader, source string) ([]Pair, error) {
	var pairs []Pair

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, Separator)
		if len(fields) != 2 {
			return nil, errors.NewCorpusParse(source, lineNo, len(fields))
		}

		pairs = append(pairs, Pair{
			Prompt:   fields[0],
			Response: fields[1],
			Line:     lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read corpus %s: %w", source, err))
	}

	return pairs, nil
}
