// Copyright 2025 the copyfx authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	// Define HCL schema
	type hclConfig struct {
		Sources     []string `hcl:"sources"`
		Destination string   `hcl:"destination"`
		Overwrite   bool     `hcl:"overwrite,optional"`
		Native      *bool    `hcl:"native,optional"`
		Passthrough bool     `hcl:"passthrough,optional"`
		Recursive   bool     `hcl:"recursive,optional"`
		BufferSize  int      `hcl:"buffer_size,optional"`
		Filter      *struct {
			Include []string `hcl:"include,optional"`
			Exclude []string `hcl:"exclude,optional"`
		} `hcl:"filter,block"`
		Reclaim *struct {
			MaxAttempts    int    `hcl:"max_attempts,optional"`
			InitialBackoff string `hcl:"initial_backoff,optional"`
			MaxBackoff     string `hcl:"max_backoff,optional"`
		} `hcl:"reclaim,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		Sources:     hclCfg.Sources,
		Destination: hclCfg.Destination,
		Overwrite:   hclCfg.Overwrite,
		Native:      hclCfg.Native,
		Passthrough: hclCfg.Passthrough,
		Recursive:   hclCfg.Recursive,
		BufferSize:  hclCfg.BufferSize,
	}

	if hclCfg.Filter != nil {
		cfg.Filter = &FilterArgs{
			Include: hclCfg.Filter.Include,
			Exclude: hclCfg.Filter.Exclude,
		}
	}
	if hclCfg.Reclaim != nil {
		cfg.Reclaim = &ReclaimArgs{
			MaxAttempts:    hclCfg.Reclaim.MaxAttempts,
			InitialBackoff: hclCfg.Reclaim.InitialBackoff,
			MaxBackoff:     hclCfg.Reclaim.MaxBackoff,
		}
	}

	return cfg, nil
}
