// Package transform implements component F, the Transform Pipeline:
// TypeScript/JSX/JSON/CJS source lowered to a form the engine can execute,
// with a content-addressed disk cache (§4.F).
//
// Grounded on the teacher's bundle.go, which drives
// github.com/evanw/esbuild's pkg/api (esbuild.Build/esbuild.Transform) to
// bundle a single worker script and wraps the result in an IIFE
// (wrapESModule); generalized here from "bundle one script for one
// request" to "strip types/JSX for an arbitrary module graph, one module at
// a time," since dune's own Go-side linker (internal/module) — not
// esbuild's bundler — owns cross-module linking (see DESIGN.md).
package transform

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/duneland/dune/internal/engine"
)

// Pipeline strips TypeScript types and lowers JSX/modern syntax for a
// single module's source, backed by a content-addressed Cache.
type Pipeline struct {
	cache  *Cache
	target api.Target
	reload bool
}

// New creates a Pipeline caching transformed output under cacheDir. reload
// mirrors the CLI's --reload flag (§6): when true, cache reads are skipped
// (a fresh transform is always computed) but the result is still written
// back, so a later run without --reload benefits from it.
func New(cacheDir string, reload bool) (*Pipeline, error) {
	cache, err := newCache(cacheDir)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cache: cache, target: api.ESNext, reload: reload}, nil
}

// Result is one module's transformed output.
type Result struct {
	Code      string
	SourceMap string // raw source-map v3 JSON, empty when the source had no mapping-worthy change
}

// Transform lowers source according to the file extension of path (.ts,
// .tsx, .jsx, .mjs, .cjs, .js), serving from the content-addressed cache
// when an identical (path, loader, source) triple was already transformed.
func (p *Pipeline) Transform(path string, source string) (Result, error) {
	loader := loaderForPath(path)
	if loader == api.LoaderJSON {
		// JSON modules are synthesized directly by the module graph
		// (module.exports = { default: <parsed literal> }), never run through esbuild.
		return Result{Code: source}, nil
	}

	key := cacheKey(path, loader, source)
	if !p.reload {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
	}

	opts := api.TransformOptions{
		Loader:      loader,
		Target:      p.target,
		Sourcefile:  filepath.Base(path),
		Sourcemap:   api.SourceMapExternal,
		Format:      api.FormatDefault, // preserve import/export syntax; dune's own linker rewrites it
		LegalComments: api.LegalCommentsNone,
	}
	res := api.Transform(source, opts)
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, m := range res.Errors {
			msgs[i] = m.Text
			if m.Location != nil {
				msgs[i] = fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
			}
		}
		return Result{}, engine.CompileError(path, errors.New(strings.Join(msgs, "; ")))
	}

	out := Result{Code: string(res.Code), SourceMap: string(res.Map)}
	p.cache.Put(key, out)
	return out, nil
}

func loaderForPath(path string) api.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	case ".json":
		return api.LoaderJSON
	case ".mjs", ".cjs", ".js":
		return api.LoaderJS
	default:
		return api.LoaderJS
	}
}
