package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `
version: 2
notes: test fleet mapping
pgns:
  - pgn: 61444
    name: EEC1
    spns:
      - spn: 190
        signal_name: engine_rpm
        source: ECM
        unit: rpm
        byte_indices: [3, 4]
        endianness: little
        scale: 0.125
  - pgn: 61443
    name: ET1
    spns:
      - spn: 110
        signal_name: coolant_temp
        source: ECM
        unit: degC
        byte_indices: [0]
        offset: -40
        formula: "x * 1.8 + 32"
`

func Test_Parse(t *testing.T) {
	assert := assert.New(t)

	m, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(2, m.Version)
	assert.Equal("test fleet mapping", m.Notes)
	assert.Len(m.PGNs, 2)

	rule, ok := m.Rule(61444)
	require.True(t, ok)
	assert.Equal("EEC1", rule.Name)
	require.Len(t, rule.SPNs, 1)

	rpm := rule.SPNs[0]
	assert.Equal(uint32(190), rpm.SPN)
	assert.Equal([]int{3, 4}, rpm.ByteIdx)
	assert.Equal(LittleEndian, rpm.Endianness)
	assert.InDelta(0.125, rpm.Scale, 1e-9)
	assert.Nil(rpm.Formula())

	coolant, ok := m.Rule(61443)
	require.True(t, ok)
	assert.NotNil(coolant.SPNs[0].Formula())

	_, ok = m.Rule(12345)
	assert.False(ok)
}

func Test_Parse_Defaults(t *testing.T) {
	assert := assert.New(t)

	doc := `
pgns:
  - pgn: 61444
    name: EEC1
    spns:
      - spn: 190
        signal_name: engine_rpm
        byte_indices: [3, 4]
`

	m, err := Parse([]byte(doc))
	require.NoError(t, err)

	rule, _ := m.Rule(61444)
	spn := rule.SPNs[0]
	assert.InDelta(1.0, spn.Scale, 1e-9)
	assert.Equal(LittleEndian, spn.Endianness)
	assert.InDelta(0.0, spn.Offset, 1e-9)
}

func Test_Parse_Invalid(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not yaml",
			doc:  "pgns: [",
		},
		{
			name: "pgn out of range",
			doc: `
pgns:
  - pgn: 262144
    spns:
      - {spn: 1, signal_name: a, byte_indices: [0]}
`,
		},
		{
			name: "duplicate pgn",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: a, byte_indices: [0]}
  - pgn: 61444
    spns:
      - {spn: 2, signal_name: b, byte_indices: [1]}
`,
		},
		{
			name: "no spn rules",
			doc: `
pgns:
  - pgn: 61444
    spns: []
`,
		},
		{
			name: "empty signal name",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: "", byte_indices: [0]}
`,
		},
		{
			name: "empty byte indices",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: a, byte_indices: []}
`,
		},
		{
			name: "byte index out of range",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: a, byte_indices: [8]}
`,
		},
		{
			name: "unknown endianness",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: a, byte_indices: [0], endianness: middle}
`,
		},
		{
			name: "bad formula",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: a, byte_indices: [0], formula: "x +* 2"}
`,
		},
		{
			name: "formula with unknown variable",
			doc: `
pgns:
  - pgn: 61444
    spns:
      - {spn: 1, signal_name: a, byte_indices: [0], formula: "y * 2"}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(err)
		})
	}
}

func Test_Load(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "mapping.yml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(m.PGNs, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(err)
}
