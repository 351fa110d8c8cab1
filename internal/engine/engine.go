// Package engine is wikitool's central orchestrator: GetChanges, Pull,
// Push, and InitFromFiles reconcile the local filesystem, the SQLite
// store, and a remote MediaWiki instance. Grounded on the teacher's
// internal/wiki.WikiService — the same "thin orchestration over
// storage+index" shape, generalized from a single git-backed store to
// a three-way (files, DB, wiki) reconciliation.
package engine

import (
	"github.com/go-playground/validator/v10"

	"github.com/remiliacorporation/wikitool/internal/codec"
	"github.com/remiliacorporation/wikitool/internal/fs"
	"github.com/remiliacorporation/wikitool/internal/index"
	"github.com/remiliacorporation/wikitool/internal/mediawiki"
	"github.com/remiliacorporation/wikitool/internal/store"
)

// validate is the shared validator instance for every option-record
// struct tag in this package, mirroring the teacher's reliance on
// struct-level validation over ad hoc option-bag checks.
var validate = validator.New()

// Engine bundles every dependency the four public operations share.
// Created once per process and released on teardown (spec.md §5's
// "resource scoping").
type Engine struct {
	Store  *store.Store
	FS     *fs.FS
	Client *mediawiki.Client
	Table  *codec.Table
	Paths  codec.Paths

	IndexDeps index.Deps
}

// New wires the four collaborators into an Engine. client may be nil
// for filesystem-only operations (InitFromFiles, rebuild-index).
func New(s *store.Store, f *fs.FS, client *mediawiki.Client, table *codec.Table, paths codec.Paths, interwiki map[string]bool) *Engine {
	return &Engine{
		Store:  s,
		FS:     f,
		Client: client,
		Table:  table,
		Paths:  paths,
		IndexDeps: index.Deps{
			Store:             s,
			Table:             table,
			InterwikiPrefixes: interwiki,
		},
	}
}

// PageError records one title's failure within a batch operation
// without aborting the rest, per spec.md §7's propagation policy.
type PageError struct {
	Title   string
	Message string
}
