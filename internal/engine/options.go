package engine

// ChangesOptions configures GetChanges. An explicit struct in place of
// a duck-typed option bag, per SPEC_FULL.md's re-architecture note on
// pull/push/getChanges option records.
type ChangesOptions struct {
	Namespaces       []int
	IncludeTemplates bool
}

// ChangeType classifies one title's local-vs-store-vs-remote state.
type ChangeType string

const (
	ChangeNewLocal      ChangeType = "new_local"
	ChangeModifiedLocal ChangeType = "modified_local"
	ChangeDeletedLocal  ChangeType = "deleted_local"
	ChangeConflict      ChangeType = "conflict"
	ChangeSynced        ChangeType = "synced"
)

// Change is one classified title, per spec.md §4.8.1.
type Change struct {
	Title string
	Type  ChangeType
}

// PullOptions configures Pull.
type PullOptions struct {
	Namespaces       []int `validate:"required,min=1"`
	Category         string
	Full             bool
	OverwriteLocal   bool
	IncludeTemplates bool
	OnProgress       func(processed, total int)
}

// PullResult aggregates counters from one Pull call, per spec.md
// §4.8.2's "report counts: created, updated, skipped, errors".
type PullResult struct {
	Created int
	Updated int
	Skipped int
	Errors  []PageError
}

// PushOptions configures Push.
type PushOptions struct {
	Summary          string `validate:"required"`
	DryRun           bool
	Force            bool
	Delete           bool
	IncludeTemplates bool
	Namespaces       []int
	OnProgress       func(processed, total int)
}

// PushPageAction classifies what Push did with one title.
type PushPageAction string

const (
	PushActionCreated  PushPageAction = "created"
	PushActionPushed   PushPageAction = "pushed"
	PushActionDeleted  PushPageAction = "deleted"
	PushActionUnchanged PushPageAction = "unchanged"
	PushActionError    PushPageAction = "error"
)

// PushPageResult records one title's outcome within a Push call.
type PushPageResult struct {
	Title  string
	Action PushPageAction
}

// PushResult is the structured outcome of one Push call, per
// spec.md §4.8.3.
type PushResult struct {
	Success   bool
	Pushed    int
	Unchanged int
	Conflicts []string
	Errors    []PageError
	Pages     []PushPageResult
}

// InitFromFilesOptions configures InitFromFiles.
type InitFromFilesOptions struct {
	IncludeTemplates bool
}

// InitFromFilesResult aggregates counters from one InitFromFiles call.
type InitFromFilesResult struct {
	Created int
	Synced  int
	Errors  []PageError
}
