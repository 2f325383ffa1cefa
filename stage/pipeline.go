package stage

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/arnodel/struckstream/encoding/jsonl"
	"github.com/arnodel/struckstream/stream"
)

// A Pipeline is a list of stages run in a single process, as read from a
// file like
//
//	convention: paired
//	processors:
//	  - processor: youtube
//	    width: 800
//	  - processor: api_role
//	    target_format: https://docs.example.com/%s
//
// Every field of a processor other than "processor" is an option of that
// stage.
type Pipeline struct {
	// Convention overrides the configured one when not empty.
	Convention string      `yaml:"convention"`
	Processors []Processor `yaml:"processors"`
}

// Processor is one stage of a Pipeline.
type Processor struct {
	Name    string
	Options *yaml.Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Processor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: processor must be a mapping", node.Line)
	}
	opts := &yaml.Node{Kind: yaml.MappingNode, Tag: node.Tag, Line: node.Line, Column: node.Column}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Value == "processor" {
			if err := value.Decode(&p.Name); err != nil {
				return err
			}
			continue
		}
		opts.Content = append(opts.Content, key, value)
	}
	if p.Name == "" {
		return fmt.Errorf("line %d: processor name is missing", node.Line)
	}
	p.Options = opts
	return nil
}

// LoadPipeline reads a pipeline definition.
func LoadPipeline(r io.Reader) (*Pipeline, error) {
	var p Pipeline
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty pipeline definition")
		}
		return nil, fmt.Errorf("invalid pipeline definition: %w", err)
	}
	if p.Convention != "" {
		if _, err := jsonl.ParseConvention(p.Convention); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Apply returns env with the pipeline's convention, if it sets one.
func (p *Pipeline) Apply(env Env) Env {
	if c, err := jsonl.ParseConvention(p.Convention); err == nil {
		env.Convention = c
	}
	return env
}

// Build builds every stage of the pipeline and chains them.
func (p *Pipeline) Build(env Env) (stream.Transformer, error) {
	env = p.Apply(env)
	ts := make([]stream.Transformer, len(p.Processors))
	for i, proc := range p.Processors {
		t, err := New(proc.Name, NewOptions(proc.Options, env))
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i+1, err)
		}
		ts[i] = t
	}
	return stream.Chain(ts...), nil
}
