package errs

import "fmt"

// ErrorKind classifies engine failures by how a caller should react,
// not by which package raised them — store, fs, and mediawiki all
// wrap failures in the same kinds so a caller never type-switches on
// a concrete error type.
type ErrorKind int

const (
	// KindUnknown is the zero value; never returned deliberately.
	KindUnknown ErrorKind = iota

	// KindConfigMissing: required env/config path absent at startup.
	// Surface, abort the operation.
	KindConfigMissing

	// KindAuthRequired: operation needs login but credentials are absent.
	// Surface with a remediation hint.
	KindAuthRequired

	// KindEditConflict: the remote revid advanced past baseRevid.
	// Record as a conflict, continue the batch.
	KindEditConflict

	// KindPermissionDenied: the API denied a write or delete.
	// Surface per-page, continue the batch.
	KindPermissionDenied

	// KindRateLimited: the API signaled throttling.
	// Sleep the advised interval and retry per policy.
	KindRateLimited

	// KindNetwork: transport failure or timeout.
	// Retry up to the configured limit, else surface.
	KindNetwork

	// KindMissingPage: read of a nonexistent title.
	// Null result, not an error unless this was a push.
	KindMissingPage

	// KindSchemaMismatch: expected table or column absent.
	// Abort, instruct the caller to run migrations.
	KindSchemaMismatch

	// KindMigrationFailed: a specific migration's SQL failed.
	// Roll back that migration, stop, report.
	KindMigrationFailed

	// KindParseError: wikitext was internally inconsistent.
	// Skip that page, record in the errors list, continue.
	KindParseError

	// KindFilesystemError: read/write/delete failure.
	// Surface, continue the batch unless fatal.
	KindFilesystemError
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindAuthRequired:
		return "auth_required"
	case KindEditConflict:
		return "edit_conflict"
	case KindPermissionDenied:
		return "permission_denied"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindMissingPage:
		return "missing_page"
	case KindSchemaMismatch:
		return "schema_mismatch"
	case KindMigrationFailed:
		return "migration_failed"
	case KindParseError:
		return "parse_error"
	case KindFilesystemError:
		return "filesystem_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind and a Title identifying
// which page (if any) the failure concerns, so a batch operation can
// report per-page failures without losing the originating error.
type Error struct {
	Kind  ErrorKind
	Title string
	Err   error
}

func (e *Error) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Title, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrEditConflict) and the other sentinels work by comparing
// Kind when the target is itself an *Error carrying only a Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Err != nil {
		return false
	}
	return e.Kind == t.Kind
}

// Newf constructs an *Error for kind concerning title, wrapping err.
func Newf(kind ErrorKind, title string, err error) *Error {
	return &Error{Kind: kind, Title: title, Err: err}
}

// sentinel returns a bare *Error carrying only a Kind, for use with
// errors.Is(err, ErrEditConflict) style checks.
func sentinel(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

var (
	// ErrConfigMissing is a sentinel for errors.Is checks against KindConfigMissing.
	ErrConfigMissing = sentinel(KindConfigMissing)
	// ErrAuthRequired is a sentinel for errors.Is checks against KindAuthRequired.
	ErrAuthRequired = sentinel(KindAuthRequired)
	// ErrEditConflict is a sentinel for errors.Is checks against KindEditConflict.
	ErrEditConflict = sentinel(KindEditConflict)
	// ErrPermissionDenied is a sentinel for errors.Is checks against KindPermissionDenied.
	ErrPermissionDenied = sentinel(KindPermissionDenied)
	// ErrRateLimited is a sentinel for errors.Is checks against KindRateLimited.
	ErrRateLimited = sentinel(KindRateLimited)
	// ErrNetwork is a sentinel for errors.Is checks against KindNetwork.
	ErrNetwork = sentinel(KindNetwork)
	// ErrMissingPage is a sentinel for errors.Is checks against KindMissingPage.
	ErrMissingPage = sentinel(KindMissingPage)
	// ErrSchemaMismatch is a sentinel for errors.Is checks against KindSchemaMismatch.
	ErrSchemaMismatch = sentinel(KindSchemaMismatch)
	// ErrMigrationFailed is a sentinel for errors.Is checks against KindMigrationFailed.
	ErrMigrationFailed = sentinel(KindMigrationFailed)
	// ErrParseError is a sentinel for errors.Is checks against KindParseError.
	ErrParseError = sentinel(KindParseError)
	// ErrFilesystemError is a sentinel for errors.Is checks against KindFilesystemError.
	ErrFilesystemError = sentinel(KindFilesystemError)
)
