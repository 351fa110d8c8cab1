package store

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open("sqlite:///nonexistent/deeply/nested/path/db.sqlite")
	if err == nil {
		t.Error("Open() should fail for an unwritable path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() call should be a no-op, got: %v", err)
	}
}

func TestValidateSchemaAfterMigrate(t *testing.T) {
	s := openTestStore(t)
	status, err := s.ValidateSchema(context.Background())
	if err != nil {
		t.Fatalf("ValidateSchema: %v", err)
	}
	if !status.Valid {
		t.Errorf("expected valid schema, got %+v", status)
	}
	if status.CurrentVersion != status.ExpectedVersion {
		t.Errorf("current=%q expected=%q", status.CurrentVersion, status.ExpectedVersion)
	}
}

func TestUpsertPageCreatesThenUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ns := 0
	id, err := s.UpsertPage(ctx, PagePatch{Title: "Main Page", Namespace: &ns})
	if err != nil {
		t.Fatalf("UpsertPage (create): %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero page id")
	}

	status := "synced"
	content := []byte("hello wiki")
	id2, err := s.UpsertPage(ctx, PagePatch{
		Title: "Main Page", SyncStatus: &status, Content: content, HasContent: true,
	})
	if err != nil {
		t.Fatalf("UpsertPage (update): %v", err)
	}
	if id2 != id {
		t.Fatalf("expected same id on update, got %d vs %d", id2, id)
	}

	p, err := s.GetPage(ctx, "Main Page")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if p == nil {
		t.Fatal("expected page to exist")
	}
	if p.SyncStatus != "synced" {
		t.Errorf("SyncStatus = %q, want synced", p.SyncStatus)
	}
	if string(p.Content) != "hello wiki" {
		t.Errorf("Content = %q", p.Content)
	}
	if p.ContentHash == "" {
		t.Error("expected a non-empty content hash")
	}
}

func TestGetPageMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetPage(context.Background(), "Does Not Exist")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for missing page, got %+v", p)
	}
}

func TestGetPageByFilepathFoldIgnoresCase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := "wiki_content/Main/Hello_World.wiki"
	if _, err := s.UpsertPage(ctx, PagePatch{Title: "Hello World", Filepath: &path}); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}

	p, err := s.GetPageByFilepathFold(ctx, "WIKI_CONTENT/MAIN/hello_world.wiki")
	if err != nil {
		t.Fatalf("GetPageByFilepathFold: %v", err)
	}
	if p == nil || p.Title != "Hello World" {
		t.Errorf("expected case-insensitive match, got %+v", p)
	}
}

func TestGetPagesFilterByNamespaceAndStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ns0, ns14 := 0, 14
	synced := "synced"
	newStatus := "new"
	if _, err := s.UpsertPage(ctx, PagePatch{Title: "Alpha", Namespace: &ns0, SyncStatus: &synced}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertPage(ctx, PagePatch{Title: "Beta", Namespace: &ns0, SyncStatus: &newStatus}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertPage(ctx, PagePatch{Title: "Category:Gamma", Namespace: &ns14, SyncStatus: &synced}); err != nil {
		t.Fatal(err)
	}

	pages, err := s.GetPages(ctx, Filter{Namespace: &ns0, SyncStatus: "synced"})
	if err != nil {
		t.Fatalf("GetPages: %v", err)
	}
	if len(pages) != 1 || pages[0].Title != "Alpha" {
		t.Errorf("unexpected filtered pages: %+v", pages)
	}
}

func TestDeletePageCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertPage(ctx, PagePatch{Title: "Orphan"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.conn.ExecContext(ctx, `INSERT INTO page_links (source_page_id, target_title, link_type) VALUES (?, ?, 'internal')`, id, "Somewhere"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeletePage(ctx, "Orphan"); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}

	p, err := s.GetPage(ctx, "Orphan")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Error("expected page to be gone")
	}

	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_links WHERE source_page_id = ?`, id).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected cascaded page_links rows to be gone, got %d", count)
	}
}

func TestUpdateSyncStatusIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertPage(ctx, PagePatch{Title: "Delta"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateSyncStatus(ctx, "Delta", "pushed"); err != nil {
		t.Fatalf("UpdateSyncStatus: %v", err)
	}
	if err := s.UpdateSyncStatus(ctx, "Delta", "pushed"); err != nil {
		t.Fatalf("second UpdateSyncStatus should be a no-op: %v", err)
	}

	p, err := s.GetPage(ctx, "Delta")
	if err != nil {
		t.Fatal(err)
	}
	if p.SyncStatus != "pushed" {
		t.Errorf("SyncStatus = %q, want pushed", p.SyncStatus)
	}
}

func TestLogSyncAndGetSyncLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.LogSync(ctx, SyncLogEntry{Operation: "pull", PageTitle: "Alpha", Status: "success"}); err != nil {
		t.Fatalf("LogSync: %v", err)
	}
	if err := s.LogSync(ctx, SyncLogEntry{Operation: "push", PageTitle: "Beta", Status: "failed", ErrorMessage: "boom"}); err != nil {
		t.Fatalf("LogSync: %v", err)
	}

	logs, err := s.GetSyncLogs(ctx, 1)
	if err != nil {
		t.Fatalf("GetSyncLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].PageTitle != "Beta" {
		t.Errorf("expected most recent entry first, got %+v", logs)
	}
}

func TestIndexPageAndSearchFTS(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.IndexPage(ctx, "content", "Main Page", "the quick brown fox"); err != nil {
		t.Fatalf("IndexPage: %v", err)
	}
	if err := s.IndexPage(ctx, "technical", "API Reference", "fox hunting technical manual"); err != nil {
		t.Fatalf("IndexPage: %v", err)
	}

	results, err := s.SearchFTS(ctx, "fox", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(results), results)
	}

	filtered, err := s.SearchFTS(ctx, "fox", SearchOptions{Tier: "content"})
	if err != nil {
		t.Fatalf("SearchFTS (filtered): %v", err)
	}
	if len(filtered) != 1 || filtered[0].Title != "Main Page" {
		t.Errorf("unexpected filtered results: %+v", filtered)
	}

	// Reindexing the same (tier, title) replaces rather than duplicates.
	if err := s.IndexPage(ctx, "content", "Main Page", "updated fox content"); err != nil {
		t.Fatalf("re-IndexPage: %v", err)
	}
	again, err := s.SearchFTS(ctx, "fox", SearchOptions{Tier: "content"})
	if err != nil {
		t.Fatalf("SearchFTS after reindex: %v", err)
	}
	if len(again) != 1 {
		t.Errorf("expected reindex to replace, not duplicate, got %d rows", len(again))
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ns0 := 0
	synced := "synced"
	if _, err := s.UpsertPage(ctx, PagePatch{Title: "Alpha", Namespace: &ns0, SyncStatus: &synced}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", stats.TotalPages)
	}
	if stats.ByNamespace[0] != 1 {
		t.Errorf("ByNamespace[0] = %d, want 1", stats.ByNamespace[0])
	}
	if stats.BySyncStatus["synced"] != 1 {
		t.Errorf("BySyncStatus[synced] = %d, want 1", stats.BySyncStatus["synced"])
	}
}
