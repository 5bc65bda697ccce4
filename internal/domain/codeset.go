package domain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrCodeNotFound = errors.New("code not found in codeset")

// CodeFormat describes how key data is modulated. Pulse and gap widths are
// multiples of Timebase microseconds.
type CodeFormat struct {
	Protocol  string  `yaml:"protocol"`
	Coding    string  `yaml:"coding"`
	Preamble  []int   `yaml:"preamble"`
	Zero      []int   `yaml:"zero"`
	One       []int   `yaml:"one"`
	Postamble []int   `yaml:"postamble"`
	Timebase  int     `yaml:"timebase"`
	Gap       int     `yaml:"gap"`
	Frequency int     `yaml:"frequency"`
	DutyCycle float64 `yaml:"duty_cycle"`
	MSBFirst  bool    `yaml:"msb_first"`
}

// Codeset is the table of IR keys a remote understands. Key values are
// backend specific: hex bytes for local transmitters, learned codes for
// cloud bridges.
type Codeset struct {
	Format CodeFormat        `yaml:"format"`
	Keys   map[string]string `yaml:"keys"`
}

func LoadCodeset(path string) (*Codeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading codeset file: %w", err)
	}

	cs, err := ParseCodeset(data)
	if err != nil {
		return nil, fmt.Errorf("codeset %s: %w", path, err)
	}

	return cs, nil
}

// ParseCodeset accepts YAML or JSON.
func ParseCodeset(data []byte) (*Codeset, error) {
	var cs Codeset
	if err := yaml.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("parsing codeset: %w", err)
	}

	if len(cs.Keys) == 0 {
		return nil, errors.New("codeset has no keys")
	}

	cs.setDefaults()

	return &cs, nil
}

func (c *Codeset) setDefaults() {
	f := &c.Format
	if f.Protocol == "" {
		f.Protocol = "NEC"
	}
	if f.Coding == "" {
		f.Coding = "ppm"
	}
	if f.Timebase == 0 {
		f.Timebase = 560
	}
	if len(f.Preamble) == 0 {
		f.Preamble = []int{16, 8}
	}
	if len(f.Zero) == 0 {
		f.Zero = []int{1, 1}
	}
	if len(f.One) == 0 {
		f.One = []int{1, 3}
	}
	if len(f.Postamble) == 0 {
		f.Postamble = []int{1}
	}
	if f.Frequency == 0 {
		f.Frequency = 38000
	}
	if f.DutyCycle == 0 {
		f.DutyCycle = 0.33
	}
}

func (c *Codeset) Has(code Command) bool {
	_, ok := c.Keys[string(code)]
	return ok
}

func (c *Codeset) Raw(code Command) (string, error) {
	v, ok := c.Keys[string(code)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCodeNotFound, code)
	}
	return v, nil
}

// Bytes decodes the key as hex, ignoring whitespace and an optional 0x prefix.
func (c *Codeset) Bytes(code Command) ([]byte, error) {
	raw, err := c.Raw(code)
	if err != nil {
		return nil, err
	}

	clean := strings.Join(strings.Fields(raw), "")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")

	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decoding key %s: %w", code, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("key %s is empty", code)
	}

	return b, nil
}

// Names returns the key names in sorted order.
func (c *Codeset) Names() []string {
	names := make([]string, 0, len(c.Keys))
	for k := range c.Keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
