package hclconfig

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/capscan/internal/config"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges them in order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.Collect(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		part, err := l.decodeFile(ctx, hclFile.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		model.Merge(part)
	}

	logger.Debug("HCL loading complete.", "files", len(files), "requests", len(model.Requests), "rules", len(model.Rules), "backends", len(model.Backends))
	return model, nil
}

// Parse decodes a single in-memory HCL document.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	return l.decodeFile(ctx, hclFile.Body)
}

func (l *Loader) decodeFile(ctx context.Context, body hcl.Body) (*config.Model, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, diags
	}

	model := &config.Model{Models: root.Models}
	for _, r := range root.Requests {
		model.Requests = append(model.Requests, config.Request{
			Capability: r.Capability,
			Type:       r.Type,
			Function:   r.Function,
			Module:     r.Module,
			Purpose:    r.Purpose,
			Label:      r.Label,
		})
	}
	for _, r := range root.Rules {
		opts, err := attributes(r.Options)
		if err != nil {
			return nil, err
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
	for _, b := range root.Backends {
		model.Backends = append(model.Backends, config.BackendRule{Capability: b.Capability, Library: b.Library, Versions: b.Versions})
	}

	if s := root.Scan; s != nil {
		model.Scan = config.Scan{Source: s.Source, Points: s.Points, Seed: s.Seed}
		for _, p := range s.Parameters {
			model.Scan.Parameters = append(model.Scan.Parameters, config.Parameter{Name: p.Name, Min: p.Min, Max: p.Max, Steps: p.Steps})
		}
		for i, pt := range s.List {
			values, err := pointValues(pt)
			if err != nil {
				return nil, fmt.Errorf("scan point %d: %w", i, err)
			}
			model.Scan.List = append(model.Scan.List, values)
		}
	}
	if lk := root.Likelihood; lk != nil {
		model.Likelihood = config.Likelihood{Floor: lk.Floor, MaxInvalidStreak: lk.MaxInvalidStreak, Label: lk.Label}
	}
	if sk := root.Sinks; sk != nil {
		model.Sinks.Log = sk.Log
		if sio := sk.SocketIO; sio != nil {
			model.Sinks.SocketIO = &config.SocketIO{
				URL:                sio.URL,
				Namespace:          sio.Namespace,
				Event:              sio.Event,
				ConnectTimeout:     sio.ConnectTimeout,
				InsecureSkipVerify: sio.InsecureSkipVerify,
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("Decoded HCL body.", "requests", len(model.Requests), "rules", len(model.Rules))
	return model, nil
}

// attributes evaluates every attribute of a free-form block.
func attributes(block *optionsBlock) (map[string]cty.Value, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid value for option '%s': %w", name, diags)
		}
		out[name] = val
	}
	return out, nil
}

func pointValues(block *optionsBlock) (map[string]float64, error) {
	attrs, err := attributes(block)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(attrs))
	for name, val := range attrs {
		var f float64
		if err := gocty.FromCtyValue(val, &f); err != nil {
			return nil, fmt.Errorf("parameter '%s': %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}
