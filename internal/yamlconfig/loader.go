package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialistvlad/capscan/internal/config"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Loader implements config.Loader for YAML documents.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .yaml and .yml file found under paths and merges them in
// order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := fsutil.Collect(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		part, err := l.Parse(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
		}
		model.Merge(part)
	}
	return model, nil
}

// Parse decodes a single YAML document. Unknown keys are rejected.
func (l *Loader) Parse(ctx context.Context, data []byte) (*config.Model, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	model := &config.Model{}
	if err := decodeParameters(&doc.Parameters, model); err != nil {
		return nil, err
	}

	for _, o := range doc.ObsLikes {
		purpose, err := normalizePurpose(o.Purpose)
		if err != nil {
			return nil, fmt.Errorf("ObsLikes %s: %w", o.Capability, err)
		}
		model.Requests = append(model.Requests, config.Request{
			Capability: o.Capability,
			Type:       o.Type,
			Function:   o.Function,
			Module:     o.Module,
			Purpose:    purpose,
			Label:      o.Label,
		})
	}

	for i, r := range doc.Rules {
		var opts map[string]cty.Value
		if len(r.Options) > 0 {
			opts = make(map[string]cty.Value, len(r.Options))
			for k, v := range r.Options {
				cv, err := config.ToCtyValue(v)
				if err != nil {
					return nil, fmt.Errorf("Rules[%d] option %q: %w", i, k, err)
				}
				opts[k] = cv
			}
		}
		model.Rules = append(model.Rules, config.Rule{
			Capability: r.Capability,
			Type:       r.Type,
			Function:   r.Function,
			Module:     r.Module,
			Dependent:  r.Dependent,
			Options:    opts,
		})
	}

	for _, b := range doc.Backends {
		versions := b.Versions
		if b.Version != "" {
			versions = append([]string{b.Version}, versions...)
		}
		model.Backends = append(model.Backends, config.BackendRule{Capability: b.Capability, Library: b.Library, Versions: versions})
	}

	model.Scan.Source = doc.Scanner.Source
	model.Scan.Points = doc.Scanner.Points
	model.Scan.Seed = doc.Scanner.Seed
	model.Scan.List = doc.Scanner.List

	lk := doc.KeyValues.Likelihood
	model.Likelihood = config.Likelihood{Floor: lk.Floor, MaxInvalidStreak: lk.MaxInvalidStreak, Label: lk.Label}

	model.Sinks.Log = doc.Sinks.Log
	if s := doc.Sinks.SocketIO; s != nil {
		model.Sinks.SocketIO = &config.SocketIO{
			URL:                s.URL,
			Namespace:          s.Namespace,
			Event:              s.Event,
			ConnectTimeout:     s.ConnectTimeout,
			InsecureSkipVerify: s.InsecureSkipVerify,
		}
	}

	ctxlog.FromContext(ctx).Debug("Decoded YAML document.", "models", len(model.Models), "requests", len(model.Requests), "rules", len(model.Rules))
	return model, nil
}

// decodeParameters walks the Parameters mapping in document order. Each
// parameter is either a fixed scalar or a {range, steps} / {fixed_value}
// mapping.
func decodeParameters(node *yaml.Node, model *config.Model) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: Parameters must be a mapping of models", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		modelName, params := node.Content[i].Value, node.Content[i+1]
		model.Models = append(model.Models, modelName)
		if params.Kind == yaml.ScalarNode && params.Tag == "!!null" {
			continue
		}
		if params.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: parameters of model %s must be a mapping", params.Line, modelName)
		}
		for j := 0; j+1 < len(params.Content); j += 2 {
			name, spec := params.Content[j].Value, params.Content[j+1]
			p, err := decodeParameter(name, spec)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", modelName, name, err)
			}
			model.Scan.Parameters = append(model.Scan.Parameters, p)
		}
	}
	return nil
}

func decodeParameter(name string, node *yaml.Node) (config.Parameter, error) {
	if node.Kind == yaml.ScalarNode {
		var v float64
		if err := node.Decode(&v); err != nil {
			return config.Parameter{}, err
		}
		return config.Parameter{Name: name, Min: v, Max: v, Steps: 1}, nil
	}

	var spec parameterSpec
	if err := node.Decode(&spec); err != nil {
		return config.Parameter{}, err
	}
	switch {
	case spec.FixedValue != nil:
		return config.Parameter{Name: name, Min: *spec.FixedValue, Max: *spec.FixedValue, Steps: 1}, nil
	case len(spec.Range) == 2:
		return config.Parameter{Name: name, Min: spec.Range[0], Max: spec.Range[1], Steps: spec.Steps}, nil
	}
	return config.Parameter{}, fmt.Errorf("line %d: expected a value, fixed_value or a two-element range", node.Line)
}

// normalizePurpose maps the document's purpose names onto request purposes.
func normalizePurpose(purpose string) (string, error) {
	switch strings.ToLower(purpose) {
	case "", "observable":
		return "observable", nil
	case "loglike", "likelihood":
		return "likelihood", nil
	}
	return "", fmt.Errorf("unknown purpose %q", purpose)
}
