package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/storage"
)

type harness struct {
	ing  *FSIngestor
	docs repository.DocumentRepository
	blob *storage.LocalStore
}

func newHarness(t *testing.T, maxBytes int64) harness {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "ingest.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	blob, err := storage.NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)
	docs := repository.NewDocumentRepository(db, logger)
	return harness{ing: NewFSIngestor(docs, blob, maxBytes, logger), docs: docs, blob: blob}
}

func TestIngest_StoresAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	first, err := h.ing.Ingest(ctx, Upload{
		TenantID: "t1",
		Filename: "acme-msa.txt",
		Body:     strings.NewReader("MASTER SERVICES AGREEMENT between Acme Corp and Us"),
	})
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)
	assert.Len(t, first.HashHex, 64)
	assert.Equal(t, "t1/"+first.HashHex+".txt", first.ContentRef)

	doc, err := h.docs.GetByID(ctx, "t1", first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "acme-msa", doc.Title)
	assert.Equal(t, "text/plain", doc.MimeType)
	assert.Equal(t, constants.FormatText, doc.Format)

	b, err := h.blob.Get(ctx, doc.ContentRef)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Acme Corp")

	again, err := h.ing.Ingest(ctx, Upload{
		TenantID: "t1",
		Filename: "renamed.txt",
		Body:     strings.NewReader("MASTER SERVICES AGREEMENT between Acme Corp and Us"),
	})
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.Equal(t, first.DocumentID, again.DocumentID)

	other, err := h.ing.Ingest(ctx, Upload{
		TenantID: "t2",
		Filename: "acme-msa.txt",
		Body:     strings.NewReader("MASTER SERVICES AGREEMENT between Acme Corp and Us"),
	})
	require.NoError(t, err)
	assert.False(t, other.Deduplicated)
	assert.NotEqual(t, first.DocumentID, other.DocumentID)
}

func TestIngest_Rejects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 8)

	tests := []struct {
		name string
		up   Upload
	}{
		{"missing tenant", Upload{Filename: "a.txt", Body: strings.NewReader("x")}},
		{"missing filename", Upload{TenantID: "t1", Body: strings.NewReader("x")}},
		{"nil body", Upload{TenantID: "t1", Filename: "a.txt"}},
		{"empty", Upload{TenantID: "t1", Filename: "a.txt", Body: strings.NewReader("")}},
		{"too large", Upload{TenantID: "t1", Filename: "a.txt", Body: strings.NewReader("123456789")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ing.Ingest(ctx, tt.up)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestIngestDirectory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	root := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("nda.txt", "MUTUAL NON-DISCLOSURE AGREEMENT")
	write("sub/copy.md", "MUTUAL NON-DISCLOSURE AGREEMENT")
	write("sub/sow.txt", "STATEMENT OF WORK")
	write("image.png", "not a contract")
	write(".hidden/secret.txt", "skip me")
	write("empty.txt", "")

	results, stats, err := h.ing.IngestDirectory(ctx, "t1", root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 4)
	for _, r := range results {
		assert.NotContains(t, r.SourcePath, ".hidden")
	}
}

func TestIngestPath_UnsupportedExtension(t *testing.T) {
	h := newHarness(t, 0)
	p := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	_, err := h.ing.IngestPath(context.Background(), "t1", p)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, "t1/abc.pdf", contentKey("t1", "abc", "Deal.PDF"))
	assert.Equal(t, "a_b/abc.bin", contentKey("a/b", "abc", "noext"))
	assert.Equal(t, "__/abc.txt", contentKey("..", "abc", "x.txt"))
}
