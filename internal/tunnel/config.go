package tunnel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrNoConfig is returned by ParseConfig for empty input, which ReadConfig
// uses to signal that the file could not be read.
var ErrNoConfig = errors.New("no configuration available")

// mainSection collects keys that appear before the first section header.
const mainSection = "main"

// Peer is the subset of a [Peer] section the status menu displays.
type Peer struct {
	Endpoint   string
	AllowedIPs []string
}

// ParsedConfig is the displayable subset of a tunnel configuration.
//
// Only a single peer is captured: every [Peer] header feeds the same section,
// so with several peers each key holds the value from the last peer that set
// it. Peers is empty when the file has no [Peer] section at all.
type ParsedConfig struct {
	Address string
	Peers   []Peer
}

// section is one [Name] block. Name keeps its original casing; lookups fold.
type section struct {
	name   string
	values map[string]string
	order  []string
}

func (s *section) set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.order = append(s.order, key)
	}
	s.values[key] = value
}

// get performs a case-insensitive key lookup. On differently-cased
// duplicates the most recently introduced spelling wins.
func (s *section) get(key string) (string, bool) {
	for i := len(s.order) - 1; i >= 0; i-- {
		if strings.EqualFold(s.order[i], key) {
			return s.values[s.order[i]], true
		}
	}
	return "", false
}

// ini is a parsed INI-like document with sections in order of appearance.
type ini struct {
	sections []*section
}

func (d *ini) section(name string) *section {
	for _, s := range d.sections {
		if s.name == name {
			return s
		}
	}
	s := &section{name: name, values: make(map[string]string)}
	d.sections = append(d.sections, s)
	return s
}

// lookup returns the first section whose name matches case-insensitively.
func (d *ini) lookup(name string) (*section, bool) {
	for _, s := range d.sections {
		if strings.EqualFold(s.name, name) {
			return s, true
		}
	}
	return nil, false
}

func (d *ini) value(sectionName, key string) string {
	s, ok := d.lookup(sectionName)
	if !ok {
		return ""
	}
	v, _ := s.get(key)
	return v
}

// parseINI tokenizes r. It fails only if r itself fails.
func parseINI(r io.Reader) (*ini, error) {
	doc := &ini{}
	current := mainSection

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\xEF\xBB\xBF")
			first = false
		}
		line = strings.TrimSpace(stripComment(line))
		if line == "" {
			continue
		}
		if len(line) >= 2 && line[0] == '[' && line[len(line)-1] == ']' {
			current = line[1 : len(line)-1]
			doc.section(current)
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		doc.section(current).set(key, strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return doc, nil
}

// stripComment cuts line at the first '#' that is not preceded by a
// backslash. Escaped "\#" sequences are unescaped to "#".
func stripComment(line string) string {
	if !strings.Contains(line, "#") {
		return line
	}
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '#' {
			b.WriteByte('#')
			i++
			continue
		}
		if c == '#' {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ParseConfig parses tunnel configuration text.
//
// Empty text means the backing file could not be read and yields ErrNoConfig.
// Any other text parses: a file without recognizable sections produces a
// ParsedConfig with empty fields, never an error.
func ParseConfig(text string) (*ParsedConfig, error) {
	if text == "" {
		return nil, ErrNoConfig
	}
	return ParseConfigReader(strings.NewReader(text))
}

// ParseConfigReader is ParseConfig over a stream; read failures are returned.
func ParseConfigReader(r io.Reader) (*ParsedConfig, error) {
	doc, err := parseINI(r)
	if err != nil {
		return nil, err
	}

	cfg := &ParsedConfig{
		Address: doc.value("Interface", "Address"),
	}
	if _, ok := doc.lookup("Peer"); ok {
		cfg.Peers = []Peer{{
			Endpoint:   doc.value("Peer", "Endpoint"),
			AllowedIPs: splitCSV(doc.value("Peer", "AllowedIPs")),
		}}
	}
	return cfg, nil
}

// splitCSV splits a comma-separated value string and trims whitespace.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CensoredValue replaces secret values in censored configuration text.
const CensoredValue = "***"

var secretKeys = []struct{ lower, name string }{
	{"privatekey", "PrivateKey"},
	{"presharedkey", "PresharedKey"},
}

// Censor replaces every PrivateKey and PresharedKey line with a
// "Key = ***" line. Text without such lines is returned unchanged.
func Censor(text string) string {
	lines := strings.Split(text, "\n")
	changed := false
	for i, line := range lines {
		if name := secretKeyName(line); name != "" {
			lines[i] = name + " = " + CensoredValue
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(lines, "\n")
}

// secretKeyName returns the canonical key name when line assigns a secret.
// Leading whitespace of any kind and byte order marks are skipped, like the
// parser does; the key may be followed by anything but another word character.
func secretKeyName(line string) string {
	line = strings.TrimLeftFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
	for _, k := range secretKeys {
		rest, ok := cutFoldPrefix(line, k.lower)
		if !ok {
			continue
		}
		if rest == "" {
			return k.name
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return k.name
		}
	}
	return ""
}

// cutFoldPrefix removes prefix from s under Unicode case folding, the same
// folding the section and key lookups use.
func cutFoldPrefix(s, prefix string) (string, bool) {
	for _, want := range prefix {
		got, size := utf8.DecodeRuneInString(s)
		if size == 0 || !strings.EqualFold(string(got), string(want)) {
			return s, false
		}
		s = s[size:]
	}
	return s, true
}
