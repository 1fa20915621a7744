// Package manifest loads and validates CUE deployment manifests.
//
// A manifest declares the identities and constants of one deployment: the
// engine address, the fee, token symbols, the stablecoin issuer, and the
// role grants. The embedded schema rejects structurally invalid manifests
// with positioned CUE errors before any component is assembled.
package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/registry"
)

//go:embed schema.cue
var schemaCUE []byte

// Manifest is one validated deployment declaration.
type Manifest struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
	Fee    string `json:"fee"`

	Paired struct {
		Symbol string `json:"symbol"`
	} `json:"paired"`

	Stable struct {
		Symbol  string `json:"symbol"`
		Address string `json:"address"`
		Issuer  string `json:"issuer"`
	} `json:"stable"`

	Registry struct {
		BasePointer string `json:"base_pointer"`
	} `json:"registry"`

	Roles struct {
		Admins  []string `json:"admins"`
		Pausers []string `json:"pausers"`
	} `json:"roles"`
}

// Load reads, validates, and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes manifest CUE from memory. The input is
// unified with the embedded schema, so defaults apply and constraint
// violations carry CUE positions.
func Parse(data []byte) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema: %w", err)
	}

	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse manifest: %s", cueerrors.Details(err, nil))
	}

	merged := schema.Unify(v)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate manifest: %s", cueerrors.Details(err, nil))
	}

	var m Manifest
	if err := merged.LookupPath(cue.ParsePath("deployment")).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return &m, nil
}

// check applies the semantic constraints CUE cannot express conveniently.
func (m *Manifest) check() error {
	if _, err := asset.ParseAmount(m.Fee); err != nil {
		return fmt.Errorf("manifest fee: %w", err)
	}
	if m.Registry.BasePointer != "" {
		if err := registry.ValidatePointer(m.Registry.BasePointer); err != nil {
			return fmt.Errorf("manifest base_pointer: %w", err)
		}
	}
	if m.Engine == m.Stable.Issuer {
		return fmt.Errorf("manifest: engine and stable issuer must be distinct accounts")
	}
	for _, a := range m.Roles.Admins {
		if a == "" {
			return fmt.Errorf("manifest: empty admin address")
		}
	}
	for _, p := range m.Roles.Pausers {
		if p == "" {
			return fmt.Errorf("manifest: empty pauser address")
		}
	}
	return nil
}
