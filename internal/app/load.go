package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/capscan/internal/config"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/hclconfig"
	"github.com/specialistvlad/capscan/internal/yamlconfig"
)

// loadModel reads every configuration path into one validated model. Files
// go to the loader matching their extension; directories are read by both
// loaders, HCL first.
func loadModel(ctx context.Context, paths []string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var hclPaths, yamlPaths []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("config path %s: %w", p, err)
		}
		if info.IsDir() {
			hclPaths = append(hclPaths, p)
			yamlPaths = append(yamlPaths, p)
			continue
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".hcl":
			hclPaths = append(hclPaths, p)
		case ".yaml", ".yml":
			yamlPaths = append(yamlPaths, p)
		default:
			return nil, fmt.Errorf("config file %s: unsupported extension", p)
		}
	}

	model := &config.Model{}
	for _, src := range []struct {
		loader config.Loader
		paths  []string
	}{
		{hclconfig.NewLoader(), hclPaths},
		{yamlconfig.NewLoader(), yamlPaths},
	} {
		if len(src.paths) == 0 {
			continue
		}
		part, err := src.loader.Load(ctx, src.paths...)
		if err != nil {
			return nil, err
		}
		model.Merge(part)
	}

	if err := config.Validate(model); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded and translated into unified model.", "models", model.Models, "requests", len(model.Requests))
	return model, nil
}
