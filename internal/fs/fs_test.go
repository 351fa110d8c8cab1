package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/remiliacorporation/wikitool/internal/codec"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	root := t.TempDir()
	table := codec.DefaultTable()
	paths := codec.Paths{ContentDir: "wiki_content", TemplatesDir: "templates"}
	return New(root, table, paths)
}

func TestWriteThenReadFile(t *testing.T) {
	f := testFS(t)

	mtime, err := f.WriteFile("wiki_content/Main/Hello_World.wiki", []byte("Hello, wiki!"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if mtime == 0 {
		t.Error("expected non-zero mtime")
	}

	rec, err := f.ReadFile("wiki_content/Main/Hello_World.wiki")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if rec.Title != "Hello World" {
		t.Errorf("Title = %q, want %q", rec.Title, "Hello World")
	}
	if string(rec.Content) != "Hello, wiki!" {
		t.Errorf("Content = %q", rec.Content)
	}
	if rec.IsRedirect {
		t.Error("did not expect IsRedirect for a non-redirect path")
	}
}

func TestReadFileDetectsRedirectFolder(t *testing.T) {
	f := testFS(t)
	if _, err := f.WriteFile("wiki_content/Main/_redirects/Old_Name.wiki", []byte("#REDIRECT [[New Name]]")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rec, err := f.ReadFile("wiki_content/Main/_redirects/Old_Name.wiki")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !rec.IsRedirect {
		t.Error("expected IsRedirect to be true for a _redirects path")
	}
}

func TestResolveRejectsPathTraversal(t *testing.T) {
	f := testFS(t)
	if _, err := f.WriteFile("../escape.wiki", []byte("x")); err == nil {
		t.Error("expected WriteFile to reject a path escaping the project root")
	}
	if f.Exists("../../etc/passwd") {
		t.Error("Exists should not resolve outside the project root")
	}
}

func TestDeleteFile(t *testing.T) {
	f := testFS(t)
	if _, err := f.WriteFile("wiki_content/Main/Temp.wiki", []byte("x")); err != nil {
		t.Fatal(err)
	}

	removed, err := f.DeleteFile("wiki_content/Main/Temp.wiki")
	if err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if !removed {
		t.Error("expected DeleteFile to report removal")
	}

	removed, err = f.DeleteFile("wiki_content/Main/Temp.wiki")
	if err != nil {
		t.Fatalf("DeleteFile (already gone): %v", err)
	}
	if removed {
		t.Error("expected DeleteFile to report false for an already-removed file")
	}
}

func TestScanContentFiles(t *testing.T) {
	f := testFS(t)
	if _, err := f.WriteFile("wiki_content/Main/A.wiki", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteFile("wiki_content/Category/B.wiki", []byte("b")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteFile("wiki_content/Main/_redirects/C.wiki", []byte("c")); err != nil {
		t.Fatal(err)
	}
	// Non-syncable extension should be ignored.
	if err := os.WriteFile(filepath.Join(f.Root, "wiki_content", "Main", "ignore.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := f.ScanContentFiles()
	if err != nil {
		t.Fatalf("ScanContentFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}
}

func TestScanTemplateFilesFiltersSyncable(t *testing.T) {
	f := testFS(t)
	if _, err := f.WriteFile("templates/infobox/Template_Infobox_Person.wiki", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteFile("templates/misc/Module_Foo.lua", []byte("x")); err != nil {
		t.Fatal(err)
	}
	// Not a recognized prefix and not under mediawiki/_redirects: excluded.
	if _, err := f.WriteFile("templates/misc/readme.wiki", []byte("x")); err != nil {
		t.Fatal(err)
	}

	files, err := f.ScanTemplateFiles()
	if err != nil {
		t.Fatalf("ScanTemplateFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 syncable files, got %d: %v", len(files), files)
	}
}

func TestEnsureFoldersIsIdempotent(t *testing.T) {
	f := testFS(t)
	if err := f.EnsureContentFolders(); err != nil {
		t.Fatalf("EnsureContentFolders: %v", err)
	}
	if err := f.EnsureContentFolders(); err != nil {
		t.Fatalf("second EnsureContentFolders should be a no-op: %v", err)
	}
	if err := f.EnsureTemplateFolders(); err != nil {
		t.Fatalf("EnsureTemplateFolders: %v", err)
	}

	if !dirExists(filepath.Join(f.Root, "wiki_content", "Main", "_redirects")) {
		t.Error("expected wiki_content/Main/_redirects to exist")
	}
	if !dirExists(filepath.Join(f.Root, "templates", "infobox")) {
		t.Error("expected templates/infobox to exist")
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
