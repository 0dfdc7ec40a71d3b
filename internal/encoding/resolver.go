// Package encoding decodes raw dump bytes with the first candidate encoding that accepts them.
package encoding

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "encoding"

// Canonical candidate names.
const (
	UTF8        = "utf-8"
	Latin1      = "latin-1"
	Windows1252 = "windows-1252"
	ISO88591    = "iso-8859-1"
)

// DefaultCandidates is the order tried when no candidate is configured.
var DefaultCandidates = []string{UTF8, Latin1, Windows1252, ISO88591}

// windows1252Undefined are the code points windows-1252 leaves unassigned.
var windows1252Undefined = [256]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

// Document is a decoded dump. Text is always valid UTF-8 and is never decoded again.
type Document struct {
	Source    string
	RawLength int
	Encoding  string
	Text      string
}

type candidate struct {
	name   string
	decode func(raw []byte) (string, error)
}

// Resolver tries its candidates in order.
type Resolver struct {
	candidates []candidate
}

// NewResolver creates a Resolver for the given candidate names, or DefaultCandidates when
// none is given. Names are matched loosely ("UTF8", "latin1", "cp1252", "iso_8859_1").
func NewResolver(names ...string) (*Resolver, error) {
	if len(names) == 0 {
		names = DefaultCandidates
	}
	r := &Resolver{}
	for _, name := range names {
		c, err := lookup(name)
		if err != nil {
			return nil, err
		}
		r.candidates = append(r.candidates, c)
	}
	return r, nil
}

// Candidates returns the canonical names in the order they are tried.
func (r *Resolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	for i, c := range r.candidates {
		out[i] = c.name
	}
	return out
}

// Normalize maps a user supplied encoding name onto its canonical form.
func Normalize(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "utf8":
		return UTF8, true
	case "latin1", "l1":
		return Latin1, true
	case "windows1252", "cp1252":
		return Windows1252, true
	case "iso88591":
		return ISO88591, true
	default:
		return "", false
	}
}

func lookup(name string) (candidate, error) {
	canonical, ok := Normalize(name)
	if !ok {
		return candidate{}, exception.NewBatchErrorf(moduleName, "unsupported encoding %q", name)
	}
	switch canonical {
	case UTF8:
		return candidate{name: canonical, decode: decodeUTF8}, nil
	case Windows1252:
		return candidate{name: canonical, decode: decodeWindows1252}, nil
	default:
		return candidate{name: canonical, decode: charmapDecoder(charmap.ISO8859_1)}, nil
	}
}

func decodeUTF8(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("invalid UTF-8 sequence")
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeWindows1252(raw []byte) (string, error) {
	for i, b := range raw {
		if windows1252Undefined[b] {
			return "", fmt.Errorf("byte 0x%02X at offset %d is undefined in windows-1252", b, i)
		}
	}
	return charmapDecoder(charmap.Windows1252)(raw)
}

func charmapDecoder(enc encoding.Encoding) func([]byte) (string, error) {
	return func(raw []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// Decode returns the text of raw decoded with the first candidate that succeeds.
// When every candidate fails the error satisfies errors.Is(err, exception.ErrDecodeExhausted).
func (r *Resolver) Decode(source string, raw []byte) (*Document, error) {
	var attempts []string
	for _, c := range r.candidates {
		text, err := c.decode(raw)
		if err != nil {
			logger.Debugf("Decoding %s as %s failed: %v", source, c.name, err)
			attempts = append(attempts, fmt.Sprintf("%s: %v", c.name, err))
			continue
		}
		if len(attempts) > 0 {
			logger.Infof("Decoded %s as %s after %d failed candidate(s).", source, c.name, len(attempts))
		}
		return &Document{Source: source, RawLength: len(raw), Encoding: c.name, Text: text}, nil
	}
	return nil, exception.NewDecodeExhausted(moduleName,
		fmt.Sprintf("no candidate encoding could decode %s", source),
		fmt.Errorf("%s", strings.Join(attempts, "; ")))
}

// DecodeReader reads rd to the end and decodes the result.
func (r *Resolver) DecodeReader(ctx context.Context, source string, rd io.Reader) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, exception.NewIOFailure(moduleName, fmt.Sprintf("cannot read %s", source), err)
	}
	return r.Decode(source, raw)
}
