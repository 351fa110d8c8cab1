package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/remiliacorporation/wikitool/internal/codec"
	"github.com/remiliacorporation/wikitool/internal/fs"
	"github.com/remiliacorporation/wikitool/internal/mediawiki"
	"github.com/remiliacorporation/wikitool/internal/store"
)

func testEngine(t *testing.T, client *mediawiki.Client) (*Engine, *fs.FS, *store.Store) {
	t.Helper()
	root := t.TempDir()
	table := codec.DefaultTable()
	paths := codec.Paths{ContentDir: "wiki_content", TemplatesDir: "templates"}
	f := fs.New(root, table, paths)

	s, err := store.Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	e := New(s, f, client, table, paths, map[string]bool{})
	return e, f, s
}

func testMediaWikiClient(t *testing.T, handler http.HandlerFunc) *mediawiki.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return mediawiki.New(mediawiki.Config{
		APIURL:             srv.URL,
		UserAgent:          "wikitool-test/1.0",
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		MaxRetries:         1,
		RetryBaseDelay:     time.Millisecond,
	}, nil)
}

func TestGetChangesNewLocalPage(t *testing.T) {
	e, f, _ := testEngine(t, nil)

	if _, err := f.WriteFile("wiki_content/Main/Hello_World.wiki", []byte("Hello")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	changes, err := e.GetChanges(context.Background(), ChangesOptions{})
	if err != nil {
		t.Fatalf("GetChanges: %v", err)
	}
	if len(changes) != 1 || changes[0].Title != "Hello World" || changes[0].Type != ChangeNewLocal {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestGetChangesDeletedLocalPage(t *testing.T) {
	e, _, s := testEngine(t, nil)

	ns := 0
	syncStatus := "synced"
	if _, err := s.UpsertPage(context.Background(), store.PagePatch{
		Title: "Gone Page", Namespace: &ns, SyncStatus: &syncStatus,
	}); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}

	changes, err := e.GetChanges(context.Background(), ChangesOptions{})
	if err != nil {
		t.Fatalf("GetChanges: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != ChangeDeletedLocal {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestPullCreatesNewPages(t *testing.T) {
	client := testMediaWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.FormValue("list") {
		case "allpages":
			json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"allpages": []map[string]any{
					{"title": "Main Page", "ns": 0, "lastrevid": 1, "touched": "2026-01-01T00:00:00Z"},
				}},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"pages": []map[string]any{
					{
						"title": "Main Page",
						"revisions": []map[string]any{
							{"revid": 1, "timestamp": "2026-01-01T00:00:00Z", "slots": map[string]any{
								"main": map[string]any{"content": "Hello, wiki!"},
							}},
						},
					},
				}},
			})
		}
	})

	e, f, s := testEngine(t, client)

	result, err := e.Pull(context.Background(), PullOptions{Namespaces: []int{0}, Full: true})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Created = %d, want 1", result.Created)
	}

	page, err := s.GetPage(context.Background(), "Main Page")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page == nil || page.SyncStatus != "synced" {
		t.Fatalf("unexpected page row: %+v", page)
	}

	if !f.Exists("wiki_content/Main/Main_Page.wiki") {
		t.Error("expected Pull to write the content file")
	}
}

func TestPushSendsModifiedLocalPages(t *testing.T) {
	var editCalled bool
	var sentContent string
	client := testMediaWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.FormValue("action") {
		case "query":
			json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"tokens": map[string]string{"csrftoken": "abc+\\"}},
			})
		case "edit":
			editCalled = true
			sentContent = r.FormValue("text")
			w.Write([]byte(`{"edit":{"result":"Success","newrevid":2,"newtimestamp":"2026-01-02T00:00:00Z"}}`))
		}
	})

	e, f, s := testEngine(t, client)

	// The file on disk has been edited since the last sync; the DB row
	// still holds the stale content that was last pulled. Push must
	// re-read the file rather than send the cached DB copy.
	if _, err := f.WriteFile("wiki_content/Main/Hello_World.wiki", []byte("Updated content")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ns := 0
	status := "modified"
	lastSynced := "2025-01-01T00:00:00Z"
	revID := int64(1)
	if _, err := s.UpsertPage(context.Background(), store.PagePatch{
		Title:        "Hello World",
		Namespace:    &ns,
		Content:      []byte("Stale content"),
		HasContent:   true,
		SyncStatus:   &status,
		LastSyncedAt: &lastSynced,
		RevisionID:   &revID,
	}); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}

	result, err := e.Push(context.Background(), PushOptions{Summary: "test push"})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !editCalled {
		t.Fatal("expected Push to call Edit")
	}
	if sentContent != "Updated content" {
		t.Fatalf("Edit received %q, want the freshly-read file content %q", sentContent, "Updated content")
	}
	if result.Pushed != 1 || !result.Success {
		t.Fatalf("unexpected result: %+v", result)
	}

	page, err := s.GetPage(context.Background(), "Hello World")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if string(page.Content) != "Updated content" {
		t.Errorf("DB content = %q after push, want reindexed to %q", page.Content, "Updated content")
	}
	if page.SyncStatus != "synced" || page.RevisionID != 2 {
		t.Errorf("unexpected page row after push: %+v", page)
	}
}

func TestPushCreatesPageWithNoLocalStoreRow(t *testing.T) {
	var editCalled bool
	var sentBaseRevID string
	client := testMediaWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.FormValue("action") {
		case "query":
			json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"tokens": map[string]string{"csrftoken": "abc+\\"}},
			})
		case "edit":
			editCalled = true
			sentBaseRevID = r.FormValue("baserevid")
			w.Write([]byte(`{"edit":{"result":"Success","newrevid":1,"newtimestamp":"2026-01-02T00:00:00Z"}}`))
		}
	})

	e, f, s := testEngine(t, client)

	// A file created directly in the working tree, never pulled or
	// initialized: no DB row exists for it at all.
	if _, err := f.WriteFile("wiki_content/Main/Brand_New.wiki", []byte("Brand new content")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := e.Push(context.Background(), PushOptions{Summary: "create"})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !editCalled {
		t.Fatal("expected Push to call Edit for a no-DB-row new local file")
	}
	if sentBaseRevID != "" {
		t.Errorf("baserevid = %q, want empty (no optimistic lock) for a brand new page", sentBaseRevID)
	}
	if result.Pushed != 1 || !result.Success {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Pages) != 1 || result.Pages[0].Action != PushActionCreated {
		t.Fatalf("Pages = %+v, want one PushActionCreated entry", result.Pages)
	}

	page, err := s.GetPage(context.Background(), "Brand New")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page == nil || page.SyncStatus != "synced" || string(page.Content) != "Brand new content" {
		t.Fatalf("unexpected page row after push: %+v", page)
	}
}

func TestPushDryRunDoesNotCallEdit(t *testing.T) {
	var editCalled bool
	client := testMediaWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.FormValue("action") == "edit" {
			editCalled = true
		}
		json.NewEncoder(w).Encode(map[string]any{})
	})

	e, f, s := testEngine(t, client)

	if _, err := f.WriteFile("wiki_content/Main/Hello_World.wiki", []byte("Updated content")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ns := 0
	status := "modified"
	lastSynced := "2025-01-01T00:00:00Z"
	if _, err := s.UpsertPage(context.Background(), store.PagePatch{
		Title: "Hello World", Namespace: &ns, Content: []byte("Stale content"), HasContent: true,
		SyncStatus: &status, LastSyncedAt: &lastSynced,
	}); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}

	result, err := e.Push(context.Background(), PushOptions{Summary: "dry run", DryRun: true})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if editCalled {
		t.Error("dry run must not call Edit")
	}
	if result.Pushed != 1 {
		t.Fatalf("expected dry-run Pushed=1, got %+v", result)
	}
}

func TestInitFromFilesSeedsStore(t *testing.T) {
	e, f, s := testEngine(t, nil)

	if _, err := f.WriteFile("wiki_content/Main/Hello_World.wiki", []byte("Hello")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := e.InitFromFiles(context.Background(), InitFromFilesOptions{})
	if err != nil {
		t.Fatalf("InitFromFiles: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Created = %d, want 1", result.Created)
	}

	page, err := s.GetPage(context.Background(), "Hello World")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page == nil || page.SyncStatus != "new" {
		t.Fatalf("unexpected page row: %+v", page)
	}
}
