package store

// migration is one versioned, idempotent schema change. Versions are
// zero-padded strings ("001", "002", ...) ordered lexicographically,
// per spec.md §3's Schema migrations entity.
type migration struct {
	version string
	name    string
	sql     string
}

const migrationsTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	applied_at TEXT NOT NULL
);`

var migrations = []migration{
	{"001", "pages, categories, config", `
CREATE TABLE IF NOT EXISTS pages (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL UNIQUE,
	namespace        INTEGER NOT NULL,
	page_type        TEXT NOT NULL DEFAULT 'article',
	filename         TEXT,
	filepath         TEXT,
	template_category TEXT,
	content          BLOB,
	content_hash     TEXT,
	file_mtime       INTEGER,
	wiki_modified_at TEXT,
	last_synced_at   TEXT,
	sync_status      TEXT NOT NULL DEFAULT 'new',
	is_redirect      BOOLEAN NOT NULL DEFAULT 0,
	redirect_target  TEXT,
	content_model    TEXT,
	wiki_page_id     INTEGER,
	revision_id      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_pages_namespace ON pages(namespace);
CREATE INDEX IF NOT EXISTS idx_pages_sync_status ON pages(sync_status);
CREATE INDEX IF NOT EXISTS idx_pages_page_type ON pages(page_type);
CREATE INDEX IF NOT EXISTS idx_pages_filepath ON pages(filepath);

CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS page_categories (
	page_id     INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (page_id, category_id)
);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	operation    TEXT NOT NULL,
	page_title   TEXT,
	status       TEXT NOT NULL,
	revision_id  INTEGER,
	error_message TEXT,
	details      TEXT,
	timestamp    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_log_timestamp ON sync_log(timestamp);
`},

	{"002", "links, redirects, template usage and calls", `
CREATE TABLE IF NOT EXISTS page_links (
	source_page_id   INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	target_title     TEXT NOT NULL,
	link_type        TEXT NOT NULL DEFAULT 'internal',
	target_namespace INTEGER,
	PRIMARY KEY (source_page_id, target_title, link_type)
);
CREATE INDEX IF NOT EXISTS idx_page_links_target ON page_links(target_title);

CREATE TABLE IF NOT EXISTS redirects (
	source_title TEXT PRIMARY KEY,
	target_title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS template_usage (
	page_id       INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	template_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_template_usage_name ON template_usage(template_name);
CREATE INDEX IF NOT EXISTS idx_template_usage_page ON template_usage(page_id);

CREATE TABLE IF NOT EXISTS template_calls (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id       INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	template_name TEXT NOT NULL,
	call_index    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_template_calls_page ON template_calls(page_id);
CREATE INDEX IF NOT EXISTS idx_template_calls_name ON template_calls(template_name);

CREATE TABLE IF NOT EXISTS template_params (
	call_id     INTEGER NOT NULL REFERENCES template_calls(id) ON DELETE CASCADE,
	param_index INTEGER NOT NULL,
	param_name  TEXT,
	param_value TEXT,
	is_named    BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_template_params_call ON template_params(call_id);

CREATE TABLE IF NOT EXISTS infobox_kv (
	page_id      INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	infobox_name TEXT NOT NULL,
	param_name   TEXT NOT NULL,
	param_value  TEXT,
	call_index   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_infobox_kv_page ON infobox_kv(page_id);
`},

	{"003", "sections, FTS, template metadata, module deps", `
CREATE TABLE IF NOT EXISTS page_sections (
	page_id       INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	section_index INTEGER NOT NULL,
	heading       TEXT,
	level         INTEGER,
	anchor        TEXT,
	content       TEXT,
	is_lead       BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (page_id, section_index)
);

CREATE VIRTUAL TABLE IF NOT EXISTS page_sections_fts USING fts5(
	page_id UNINDEXED, section_index UNINDEXED, heading, content
);

CREATE TABLE IF NOT EXISTS template_metadata (
	template_name TEXT PRIMARY KEY,
	source        TEXT NOT NULL DEFAULT 'observed',
	param_defs    TEXT,
	description   TEXT,
	example       TEXT,
	updated_at    TEXT
);

CREATE TABLE IF NOT EXISTS module_deps (
	module_title TEXT NOT NULL,
	dependency   TEXT NOT NULL,
	dep_type     TEXT NOT NULL DEFAULT 'require',
	PRIMARY KEY (module_title, dependency, dep_type)
);

CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
	tier UNINDEXED, title, content
);
`},

	{"004", "cargo tables", `
CREATE TABLE IF NOT EXISTS cargo_tables (
	page_id     INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	table_name  TEXT NOT NULL,
	columns     TEXT NOT NULL,
	declare_raw TEXT,
	UNIQUE (page_id, table_name)
);

CREATE TABLE IF NOT EXISTS cargo_stores (
	page_id    INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	table_name TEXT NOT NULL,
	values_json TEXT NOT NULL,
	store_raw  TEXT
);
CREATE INDEX IF NOT EXISTS idx_cargo_stores_table ON cargo_stores(table_name);

CREATE TABLE IF NOT EXISTS cargo_queries (
	page_id    INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	query_type TEXT NOT NULL,
	tables     TEXT NOT NULL,
	fields     TEXT,
	params     TEXT,
	query_raw  TEXT
);
`},

	{"005", "extension and technical docs", `
CREATE TABLE IF NOT EXISTS extension_doc_pages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL UNIQUE,
	source_url  TEXT,
	content     TEXT,
	fetched_at  TEXT
);

CREATE TABLE IF NOT EXISTS technical_docs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL UNIQUE,
	content    TEXT,
	updated_at TEXT
);
`},

	{"006", "page metadata: shortdesc, display_title, word_count", `
ALTER TABLE pages ADD COLUMN short_desc TEXT;
ALTER TABLE pages ADD COLUMN display_title TEXT;
ALTER TABLE pages ADD COLUMN word_count INTEGER NOT NULL DEFAULT 0;
`},
}
