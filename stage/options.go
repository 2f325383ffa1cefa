package stage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/arnodel/struckstream/encoding/jsonl"
)

// Env is what a stage knows about the process it runs in.
type Env struct {
	// Name of the stage, used in diagnostics and metrics.
	Name       string
	Convention jsonl.Convention
	RunID      string
	Logger     zerolog.Logger
	// MetricsFile is where counters are written on exit, if not empty.
	MetricsFile string
}

// Options are the settings of one stage, e.g. the fields of a processor in
// a pipeline file or the -o key=value flags of a stage command.
type Options struct {
	node *yaml.Node
	Env  Env
}

// NewOptions returns options decoded from node, which may be nil.
func NewOptions(node *yaml.Node, env Env) Options {
	return Options{node: node, Env: env}
}

// NoOptions returns empty options for env.
func NoOptions(env Env) Options {
	return Options{Env: env}
}

// Decode stores the options in v, which is typically a pointer to a struct
// with yaml tags holding the defaults.  Fields absent from the options are
// left untouched and an option with no matching field is an error.
func (o Options) Decode(v any) error {
	if o.node == nil {
		return nil
	}
	// KnownFields is only available on a Decoder, hence the round trip.
	data, err := yaml.Marshal(o.node)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// ParseOptions builds an options mapping from "key=value" pairs.  Values
// are read as YAML scalars, so that width=800 is a number and autoplay=false
// a boolean.
func ParseOptions(pairs []string) (*yaml.Node, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q (expected key=value)", pair)
		}
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(value), &doc); err != nil {
			return nil, fmt.Errorf("invalid value for option %s: %w", key, err)
		}
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
		if len(doc.Content) > 0 {
			val = doc.Content[0]
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
	}
	return m, nil
}
