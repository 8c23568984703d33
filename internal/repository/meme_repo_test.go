package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tobyv/memesdb/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a throwaway SQLite store in a temp dir with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.MemeRecord{}, &domain.MemeEmbedding{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func testRecord(path string) *domain.MemeRecord {
	return &domain.MemeRecord{
		Path: path,
		Meta: domain.ImageMeta{
			Format: "PNG",
			Width:  100,
			Height: 80,
			Mode:   "RGBA",
			Path:   path,
		},
		ShortCaption: "a cat",
		LongCaption:  "a cat sitting on a keyboard",
		AutoTags:     "cat, keyboard",
		Hash:         "a1b2c3d4e5f60718",
	}
}

func TestUpsertInsertAndUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()

	id1, err := repo.Upsert(ctx, testRecord("/memes/cat.png"))
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if id1 == 0 {
		t.Fatal("first upsert returned zero id")
	}

	// Same path again with new captions must update in place, not duplicate.
	updated := testRecord("/memes/cat.png")
	updated.ShortCaption = "an angry cat"
	updated.Hash = "ffff000011112222"
	id2, err := repo.Upsert(ctx, updated)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if id2 != id1 {
		t.Errorf("upsert of same path changed id: first=%d, second=%d", id1, id2)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 record after re-upsert, got %d", count)
	}

	rec, err := repo.GetByPath(ctx, "/memes/cat.png")
	if err != nil {
		t.Fatalf("get by path failed: %v", err)
	}
	if rec.ShortCaption != "an angry cat" {
		t.Errorf("short caption not updated: got %q", rec.ShortCaption)
	}
	if rec.Hash != "ffff000011112222" {
		t.Errorf("hash not updated: got %q", rec.Hash)
	}
}

func TestUpsertResolvesIDAfterInterleavedInserts(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()

	idA, err := repo.Upsert(ctx, testRecord("/m/a.png"))
	if err != nil {
		t.Fatalf("upsert a failed: %v", err)
	}
	if _, err := repo.Upsert(ctx, testRecord("/m/b.png")); err != nil {
		t.Fatalf("upsert b failed: %v", err)
	}

	// Updating a after b was inserted must return a's id, not the last
	// inserted rowid.
	got, err := repo.Upsert(ctx, testRecord("/m/a.png"))
	if err != nil {
		t.Fatalf("re-upsert a failed: %v", err)
	}
	if got != idA {
		t.Errorf("re-upsert resolved wrong id: got %d, want %d", got, idA)
	}
}

func TestUpsertPreservesUserTags(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, testRecord("/memes/dog.png"))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := repo.UpdateUserTags(ctx, id, "favorite, reaction"); err != nil {
		t.Fatalf("update user tags failed: %v", err)
	}

	// Re-index the same path: auto fields refresh, user tags survive.
	if _, err := repo.Upsert(ctx, testRecord("/memes/dog.png")); err != nil {
		t.Fatalf("re-upsert failed: %v", err)
	}

	rec, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if rec.UserTags != "favorite, reaction" {
		t.Errorf("user tags clobbered by re-index: got %q, want %q", rec.UserTags, "favorite, reaction")
	}
}

func TestExistsByPath(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()

	exists, err := repo.ExistsByPath(ctx, "/memes/none.png")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if exists {
		t.Error("path should not exist before insert")
	}

	if _, err := repo.Upsert(ctx, testRecord("/memes/none.png")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	exists, err = repo.ExistsByPath(ctx, "/memes/none.png")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if !exists {
		t.Error("path should exist after insert")
	}
}

func TestGetByIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()

	var ids []uint
	for _, path := range []string{"/m/a.png", "/m/b.png", "/m/c.png"} {
		id, err := repo.Upsert(ctx, testRecord(path))
		if err != nil {
			t.Fatalf("upsert %s failed: %v", path, err)
		}
		ids = append(ids, id)
	}

	recs, err := repo.GetByIDs(ctx, []uint{ids[0], ids[2]})
	if err != nil {
		t.Fatalf("get by ids failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	empty, err := repo.GetByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("get by empty ids failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no records for empty id list, got %d", len(empty))
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats on empty store failed: %v", err)
	}
	if stats.TotalRecords != 0 || stats.UniqueImages != 0 || stats.TextBytes != 0 {
		t.Errorf("empty store stats not zero: %+v", stats)
	}

	// Two records sharing a hash plus one distinct.
	a := testRecord("/m/a.png")
	b := testRecord("/m/b.png")
	c := testRecord("/m/c.png")
	c.Hash = "0000000000000000"
	for _, rec := range []*domain.MemeRecord{a, b, c} {
		if _, err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	stats, err = repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalRecords != 3 {
		t.Errorf("total records: got %d, want 3", stats.TotalRecords)
	}
	if stats.UniqueImages != 2 {
		t.Errorf("unique images: got %d, want 2", stats.UniqueImages)
	}
	if stats.TextBytes <= 0 {
		t.Errorf("text bytes should be positive, got %d", stats.TextBytes)
	}
}
