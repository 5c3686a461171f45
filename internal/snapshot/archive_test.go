package snapshot

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoraapp/memora/internal/domain"
)

func testSnapshot() *Snapshot {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cat := "cat1"
	return &Snapshot{
		Users: []*domain.User{{
			ID: "u1", Username: "ada", Email: "ada@example.com", PasswordHash: "h",
			Timestamps: domain.Timestamps{CreatedAt: created, UpdatedAt: created},
		}},
		Categories: []*domain.Category{{ID: cat, UserID: "u1", Name: "Reading"}},
		Collections: []*domain.Collection{{
			ID: "c1", UserID: "u1", CategoryID: &cat, Name: "Books", Tags: []string{"a", "b"},
		}},
		CollectionDetails: []*domain.CollectionDetail{{
			ID: "d1", CollectionID: "c1", Key: domain.DetailKeyContent, Value: json.RawMessage(`"<p>hi</p>"`),
		}},
		Posts:    []*domain.Post{{ID: "p1", PostID: "p1", UserID: "u1", CollectionID: "c1", Description: "first", IsPrivate: true}},
		Comments: []*domain.Comment{{ID: "m1", PostID: "p1", UserID: "u2", Content: "nice"}},
		Likes:    []*domain.Like{{ID: "l1", UserID: "u1", AssetID: "p1", AssetKind: domain.AssetPost}},
		KnowledgeDocuments: []*domain.KnowledgeDocument{{
			ID: "k1", Content: "doc", Metadata: map[string]any{"source": "test"},
		}},
		Attachments: []*domain.Attachment{{ID: "a1", AttachmentID: "a1", UserID: "u1", URL: "/f.png"}},
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshot.zip")
	snap := testSnapshot()

	written, err := WriteArchive(path, snap, Manifest{UserID: "u1", Source: "normal"})
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, written.Version)
	assert.Equal(t, 9, written.Counts.Total())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be gone")

	got, m, err := ReadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, "u1", m.UserID)
	assert.Equal(t, "normal", m.Source)
	assert.Equal(t, snap.Counts(), got.Counts())

	assert.Equal(t, "ada", got.Users[0].Username)
	assert.True(t, snap.Users[0].CreatedAt.Equal(got.Users[0].CreatedAt))
	require.NotNil(t, got.Collections[0].CategoryID)
	assert.Equal(t, "cat1", *got.Collections[0].CategoryID)
	assert.Equal(t, []string{"a", "b"}, got.Collections[0].Tags)
	assert.Equal(t, `"<p>hi</p>"`, string(got.CollectionDetails[0].Value))
	assert.Equal(t, "c1", got.Posts[0].CollectionID)
	assert.True(t, got.Posts[0].IsPrivate)
	assert.Equal(t, domain.AssetPost, got.Likes[0].AssetKind)
	assert.Equal(t, "test", got.KnowledgeDocuments[0].Metadata["source"])
	assert.Equal(t, "/f.png", got.Attachments[0].URL)
}

func TestReadArchive_MissingGroupsAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.zip")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	mw, err := zw.Create(manifestPath)
	require.NoError(t, err)
	_, err = mw.Write([]byte(`{"version":"1.0","created_at":"2024-01-01T00:00:00Z","counts":{}}`))
	require.NoError(t, err)
	uw, err := zw.Create(groupPath(GroupUsers))
	require.NoError(t, err)
	_, err = uw.Write([]byte(`{"id":"u1","username":"ada","email":"ada@example.com"}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	snap, _, err := ReadArchive(path)
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)
	assert.Empty(t, snap.Posts)
}

func TestReadArchive_NoManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	_, _, err = ReadArchive(path)
	assert.ErrorContains(t, err, "manifest")
}
