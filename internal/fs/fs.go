// Package fs owns the project-rooted view of wikitool's content and
// template trees: scanning, reading, and writing plain files on disk.
// Grounded on the teacher's internal/storage.GitStorage — path
// validation, Exists/Mtime, and the directory-walk style of List are
// carried over, but retargeted at plain files instead of git blobs.
package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/remiliacorporation/wikitool/internal/codec"
	engine "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/hashutil"
)

// ErrPathTraversal is returned when a relative path would escape the
// project root, mirroring the teacher's validatePath guard.
var ErrPathTraversal = errors.New("fs: path escapes project root")

// syncableExtensions are the file types scanTemplateFiles/scanContentFiles
// recognize as wiki-managed content.
var syncableExtensions = map[string]bool{
	".wiki": true, ".wikitext": true, ".lua": true, ".css": true, ".js": true,
}

// legacyRedirectFolders are the redirect subfolder names recognized
// when reading: the current _redirects plus the legacy Redirect and
// redirects names, which are never written to.
var legacyRedirectFolders = []string{"_redirects", "Redirect", "redirects"}

// FS provides file operations rooted at Root, using table/paths to
// translate between filepaths and wiki titles.
type FS struct {
	Root  string
	Table *codec.Table
	Paths codec.Paths
}

// New constructs an FS rooted at root.
func New(root string, table *codec.Table, paths codec.Paths) *FS {
	return &FS{Root: root, Table: table, Paths: paths}
}

func (f *FS) resolve(relpath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relpath))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", ErrPathTraversal
	}
	joined := filepath.Join(f.Root, cleaned)
	if joined != f.Root && !strings.HasPrefix(joined, f.Root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// FileRecord is the result of reading a single file, enriched with
// its reverse-mapped title per spec.md §4.5's readFile.
type FileRecord struct {
	Filepath       string
	Filename       string
	Content        []byte
	ContentHash    string
	MtimeMS        int64
	Title          string
	Namespace      int
	IsRedirect     bool
	RedirectTarget string
}

// ReadFile loads relpath and computes its title via the codec's
// reverse mapping. IsRedirect/RedirectTarget reflect only the path
// shape (whether it lives under a _redirects folder); the actual
// #REDIRECT target is filled in by the wikitext parser, not here.
func (f *FS) ReadFile(relpath string) (*FileRecord, error) {
	abs, err := f.resolve(relpath)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, relpath, err)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, relpath, err)
	}

	normalized := filepath.ToSlash(relpath)
	title, err := codec.FilepathToTitle(f.Table, f.Paths, normalized)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, relpath, err)
	}

	ns := f.Table.Main().ID
	if idx := strings.Index(title, ":"); idx > 0 {
		ns = f.Table.ByPrefix(title[:idx]).ID
	}

	return &FileRecord{
		Filepath:    normalized,
		Filename:    filepath.Base(normalized),
		Content:     content,
		ContentHash: hashutil.Content(content),
		MtimeMS:     info.ModTime().UnixMilli(),
		Title:       title,
		Namespace:   ns,
		IsRedirect:  isUnderRedirectsFolder(normalized),
	}, nil
}

func isUnderRedirectsFolder(normalized string) bool {
	for _, part := range strings.Split(normalized, "/") {
		for _, legacy := range legacyRedirectFolders {
			if strings.EqualFold(part, legacy) {
				return true
			}
		}
	}
	return false
}

// WriteFile writes content to relpath, creating intermediate
// directories, and returns the new mtime in milliseconds.
func (f *FS) WriteFile(relpath string, content []byte) (int64, error) {
	abs, err := f.resolve(relpath)
	if err != nil {
		return 0, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return 0, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return 0, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	return info.ModTime().UnixMilli(), nil
}

// DeleteFile removes relpath, returning whether it existed.
func (f *FS) DeleteFile(relpath string) (bool, error) {
	abs, err := f.resolve(relpath)
	if err != nil {
		return false, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	err = os.Remove(abs)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, engine.Newf(engine.KindFilesystemError, relpath, err)
	}
	return true, nil
}

// Exists reports whether relpath exists under Root.
func (f *FS) Exists(relpath string) bool {
	abs, err := f.resolve(relpath)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// ScanContentFiles walks every folder directly under <contentDir>,
// recursively (so _redirects and legacy redirect subfolders are
// included), and collects files with a syncable extension. Folder
// names are not checked against the namespace table: a folder that
// matches no known namespace is walked too.
func (f *FS) ScanContentFiles() ([]string, error) {
	var out []string
	contentRoot := filepath.Join(f.Root, filepath.FromSlash(f.Paths.ContentDir))

	entries, err := os.ReadDir(contentRoot)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, f.Paths.ContentDir, err)
	}

	for _, nsDir := range entries {
		if !nsDir.IsDir() {
			continue
		}
		nsPath := filepath.Join(contentRoot, nsDir.Name())
		if err := walkFilesWithExt(nsPath, f.Root, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ScanTemplateFiles recursively enumerates <templatesDir>/<bucket>/**
// for syncable extensions, filtering to files that look like
// Template_/Module_-prefixed pages or live under mediawiki/_redirects.
func (f *FS) ScanTemplateFiles() ([]string, error) {
	var out []string
	templatesRoot := filepath.Join(f.Root, filepath.FromSlash(f.Paths.TemplatesDir))

	err := filepath.WalkDir(templatesRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !syncableExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(f.Root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if looksLikeSyncableTemplateFile(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, f.Paths.TemplatesDir, err)
	}
	return out, nil
}

func looksLikeSyncableTemplateFile(relpath string) bool {
	base := filepath.Base(relpath)
	if strings.HasPrefix(base, "Template_") || strings.HasPrefix(base, "Module_") {
		return true
	}
	if strings.Contains(relpath, "/mediawiki/") {
		return true
	}
	for _, legacy := range legacyRedirectFolders {
		if strings.Contains(relpath, "/"+legacy+"/") {
			return true
		}
	}
	return false
}

func walkFilesWithExt(root, projectRoot string, out *[]string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !syncableExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			return relErr
		}
		*out = append(*out, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// EnsureContentFolders idempotently creates every known content
// namespace folder and its _redirects subfolder.
func (f *FS) EnsureContentFolders() error {
	for _, ns := range f.Table.AllContentNamespaces() {
		dir := filepath.Join(f.Root, filepath.FromSlash(f.Paths.ContentDir), ns.Folder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return engine.Newf(engine.KindFilesystemError, ns.Folder, err)
		}
		if err := os.MkdirAll(filepath.Join(dir, codec.RedirectsDir), 0o755); err != nil {
			return engine.Newf(engine.KindFilesystemError, ns.Folder, err)
		}
	}
	return nil
}

// EnsureTemplateFolders idempotently creates every known bucket
// folder and its _redirects subfolder.
func (f *FS) EnsureTemplateFolders() error {
	for _, bucket := range codec.AllBuckets() {
		dir := filepath.Join(f.Root, filepath.FromSlash(f.Paths.TemplatesDir), bucket)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return engine.Newf(engine.KindFilesystemError, bucket, err)
		}
		if err := os.MkdirAll(filepath.Join(dir, codec.RedirectsDir), 0o755); err != nil {
			return engine.Newf(engine.KindFilesystemError, bucket, err)
		}
	}
	return nil
}

// Mtime returns the modification time of relpath.
func (f *FS) Mtime(relpath string) (time.Time, error) {
	abs, err := f.resolve(relpath)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
