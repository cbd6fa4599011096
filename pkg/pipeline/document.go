package pipeline

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentVersion is the config format version understood by the execution engine
const DocumentVersion = 3

// Document is the ordered, versioned plan handed to the execution engine.
// The engine runs Modules strictly in slice order.
type Document struct {
	Version int      `yaml:"version"`
	Setup   Setup    `yaml:"setup"`
	Modules []Module `yaml:"modules"`
}

// Setup holds engine installation settings
type Setup struct {
	InstallPath string `yaml:"blender_install_path"`
}

// Module is one named, parameterized stage of the pipeline.
// Config is either one of the typed configs in this package or an opaque mapping.
type Module struct {
	Name   string `yaml:"module"`
	Config any    `yaml:"config"`
}

// Names lists module names in execution order
func (d Document) Names() []string {
	names := make([]string, len(d.Modules))
	for i, m := range d.Modules {
		names[i] = m.Name
	}
	return names
}

// Marshal encodes the document as YAML with two-space indentation
func (d Document) Marshal() (data []byte, err error) {
	// yaml.v3 panics on unsupported kinds (funcs, channels) inside opaque configs
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &Error{Kind: ErrEncoding, Op: "marshal", Msg: toString(r)}
		}
	}()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, &Error{Kind: ErrEncoding, Op: "marshal", Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &Error{Kind: ErrEncoding, Op: "marshal", Err: err}
	}
	return buf.Bytes(), nil
}

// ParseDocument reads a serialized document back. Module configs come back as
// generic mappings, with numeric sequences as []interface{}.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Kind: ErrEncoding, Op: "parse", Err: err}
	}
	return &doc, nil
}

// FlowSeq is a numeric sequence rendered inline ("[1, 2, 3]") so the engine
// reads it as positional data rather than nested structure.
type FlowSeq []float64

// MarshalYAML implements yaml.Marshaler
func (s FlowSeq) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{
		Kind:  yaml.SequenceNode,
		Tag:   "!!seq",
		Style: yaml.FlowStyle,
	}
	for _, v := range s {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: formatFloat(v),
		})
	}
	return node, nil
}

// Number is a single float emitted with the same formatting as FlowSeq elements
type Number float64

// MarshalYAML implements yaml.Marshaler
func (n Number) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: formatFloat(float64(n))}, nil
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	text := strconv.FormatFloat(v, 'g', -1, 64)
	// YAML 1.1 readers only treat exponent forms as floats when the mantissa has a dot
	if e := strings.IndexByte(text, 'e'); e >= 0 && !strings.Contains(text[:e], ".") {
		text = text[:e] + ".0" + text[e:]
	}
	return text
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return "unexpected value"
	}
}
