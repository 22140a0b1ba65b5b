// Package mapping holds the declarative J1939 decode schema: which PGNs to
// decode, and how to turn their data bytes into named signal values.
package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const maxPGN = 0x3FFFF

type Endianness string

const (
	LittleEndian Endianness = "little"
	BigEndian    Endianness = "big"
)

// SpnRule describes one signal inside a PGN's 8-byte data field.
type SpnRule struct {
	SPN        uint32     `yaml:"spn"`
	SignalName string     `yaml:"signal_name"`
	Source     string     `yaml:"source"`
	Unit       string     `yaml:"unit"`
	ByteIdx    []int      `yaml:"byte_indices"`
	Endianness Endianness `yaml:"endianness"`
	Scale      float64    `yaml:"scale"`
	Offset     float64    `yaml:"offset"`
	RawFormula string     `yaml:"formula"`

	formula *Formula
}

// Formula returns the compiled correction expression, or nil if the rule
// has none.
func (r *SpnRule) Formula() *Formula {
	return r.formula
}

// PgnRule groups the SPN rules carried by a single parameter group.
type PgnRule struct {
	PGN  uint32     `yaml:"pgn"`
	Name string     `yaml:"name"`
	SPNs []*SpnRule `yaml:"spns"`
}

// Model is the full mapping document. It is immutable after Load, so the
// decode path reads it without locking.
type Model struct {
	Version int    `yaml:"version"`
	Notes   string `yaml:"notes"`

	PGNs []*PgnRule `yaml:"pgns"`

	byPGN map[uint32]*PgnRule
}

// Load reads, parses and compiles a mapping document. Any schema error is
// fatal: the collector must refuse to start on a partial mapping.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}

	return Parse(raw)
}

// Parse builds a Model from a raw YAML document.
func Parse(raw []byte) (*Model, error) {
	m := &Model{}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}

	m.applyDefaults()
	if err := m.compile(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Model) applyDefaults() {
	for _, pgnRule := range m.PGNs {
		for _, spnRule := range pgnRule.SPNs {
			if spnRule.Scale == 0 {
				spnRule.Scale = 1
			}
			if spnRule.Endianness == "" {
				spnRule.Endianness = LittleEndian
			}
		}
	}
}

// compile validates the document and builds the PGN lookup table and the
// per-rule formula programs.
func (m *Model) compile() error {
	m.byPGN = make(map[uint32]*PgnRule, len(m.PGNs))

	for _, pgnRule := range m.PGNs {
		if pgnRule.PGN > maxPGN {
			return fmt.Errorf("pgn %d: out of range (max %d)", pgnRule.PGN, maxPGN)
		}

		if _, ok := m.byPGN[pgnRule.PGN]; ok {
			return fmt.Errorf("pgn %d: duplicate rule", pgnRule.PGN)
		}

		if len(pgnRule.SPNs) == 0 {
			return fmt.Errorf("pgn %d: no spn rules", pgnRule.PGN)
		}

		for _, spnRule := range pgnRule.SPNs {
			if err := spnRule.validate(); err != nil {
				return fmt.Errorf("pgn %d, spn %d: %w", pgnRule.PGN, spnRule.SPN, err)
			}

			if spnRule.RawFormula != "" {
				formula, err := compileFormula(spnRule.RawFormula)
				if err != nil {
					return fmt.Errorf("pgn %d, spn %d: %w", pgnRule.PGN, spnRule.SPN, err)
				}
				spnRule.formula = formula
			}
		}

		m.byPGN[pgnRule.PGN] = pgnRule
	}

	return nil
}

func (r *SpnRule) validate() error {
	if r.SignalName == "" {
		return fmt.Errorf("empty signal name")
	}

	if len(r.ByteIdx) == 0 {
		return fmt.Errorf("empty byte indices")
	}
	if len(r.ByteIdx) > 8 {
		return fmt.Errorf("too many byte indices (%d)", len(r.ByteIdx))
	}
	for _, idx := range r.ByteIdx {
		if idx < 0 || idx > 7 {
			return fmt.Errorf("byte index %d out of range", idx)
		}
	}

	if r.Endianness != LittleEndian && r.Endianness != BigEndian {
		return fmt.Errorf("unknown endianness %q", r.Endianness)
	}

	return nil
}

// Rule returns the rule set for the given PGN, if any.
func (m *Model) Rule(pgn uint32) (*PgnRule, bool) {
	rule, ok := m.byPGN[pgn]
	return rule, ok
}
