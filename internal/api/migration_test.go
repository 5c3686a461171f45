package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/migration"
	"github.com/memoraapp/memora/internal/mode"
	"github.com/memoraapp/memora/internal/remote"
	"github.com/memoraapp/memora/internal/store/sqlite"
)

// standaloneContent builds local stores holding one user's content.
func standaloneContent(t *testing.T) *migration.Local {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "memora.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := docindex.Open(docindex.Options{DataPath: filepath.Join(dir, "index")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, st.CreateUser(ctx, &domain.User{ID: "usr_ada", Username: "ada", Email: "ada@example.com", PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"}))
	require.NoError(t, st.CreateCollection(ctx, &domain.Collection{ID: "col_1", UserID: "usr_ada", Name: "Reading"}))
	require.NoError(t, st.CreatePost(ctx, &domain.Post{ID: "pst_1", UserID: "usr_ada", CollectionID: "col_1", Description: "public"}))
	require.NoError(t, st.CreatePost(ctx, &domain.Post{ID: "pst_2", UserID: "usr_ada", CollectionID: "col_1", Description: "private", IsPrivate: true}))
	require.NoError(t, st.CreateComment(ctx, &domain.Comment{ID: "cmt_1", PostID: "pst_1", UserID: "usr_ada", Content: "first"}))
	_, err = st.CreateLike(ctx, &domain.Like{UserID: "usr_ada", AssetID: "pst_1", AssetKind: domain.AssetPost})
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, &domain.KnowledgeDocument{ID: "doc_1", Content: "Channels carry values between goroutines."}, "")
	require.NoError(t, err)

	return &migration.Local{Store: st, Index: idx, UserID: "usr_ada"}
}

func TestMigrateToNormal_ThroughServer(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.Server)
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{BaseURL: srv.URL, UserID: "usr_ada"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	local := standaloneContent(t)
	engine := migration.NewEngine(mode.NewStatic(domain.ModeStandalone), local, migration.Remote{Client: client}, nil)

	res := engine.Migrate(context.Background(), domain.ToNormal, migration.Options{
		IncludeCollections:   true,
		IncludePrivatePosts:  true,
		IncludeKnowledgeBase: true,
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
	assert.Equal(t, migration.MigratedItems{
		Users:              1,
		Collections:        1,
		Posts:              2,
		Comments:           1,
		KnowledgeDocuments: 1,
	}, res.MigratedItems)

	// The remote side now serves the same graph back.
	env, err := client.Export(context.Background())
	require.NoError(t, err)
	require.True(t, env.OK(), env.Message)
	require.Len(t, env.Data.Users, 1)
	assert.Equal(t, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", env.Data.Users[0].PasswordHash)
	assert.Len(t, env.Data.Collections, 1)
	assert.Len(t, env.Data.Posts, 2)
	require.Len(t, env.Data.Comments, 1)
	assert.Equal(t, "pst_1", env.Data.Comments[0].PostID)
	assert.Len(t, env.Data.Likes, 1)
	require.Len(t, env.Data.KnowledgeDocuments, 1)
	assert.Equal(t, "doc_1", env.Data.KnowledgeDocuments[0].ID)
}

func TestMigrateToNormal_RetryReportsDuplicates(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.Server)
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{BaseURL: srv.URL, UserID: "usr_ada"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	local := standaloneContent(t)
	engine := migration.NewEngine(mode.NewStatic(domain.ModeStandalone), local, migration.Remote{Client: client}, nil)
	opts := migration.Options{IncludeCollections: true}

	first := engine.Migrate(context.Background(), domain.ToNormal, opts)
	require.True(t, first.Success)

	second := engine.Migrate(context.Background(), domain.ToNormal, opts)
	assert.True(t, second.Success, "per-record failures do not fail the migration")
	assert.Zero(t, second.MigratedItems.Users)
	assert.Zero(t, second.MigratedItems.Posts)
	assert.NotEmpty(t, second.Failures)
	assert.Equal(t, closedState, client.BreakerState(), "rejections do not trip the breaker")
}

func TestMigrateToNormal_RequestTimeoutIsPerRecord(t *testing.T) {
	ts := setupTestServer(t)
	// Creating posts stalls until the client gives up.
	stalled := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/v1/posts" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		ts.Server.ServeHTTP(w, r)
	})
	srv := httptest.NewServer(stalled)
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{
		BaseURL:   srv.URL,
		UserID:    "usr_ada",
		Timeout:   100 * time.Millisecond,
		RateLimit: -1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	local := standaloneContent(t)
	engine := migration.NewEngine(mode.NewStatic(domain.ModeStandalone), local, migration.Remote{Client: client}, nil)

	res := engine.Migrate(context.Background(), domain.ToNormal, migration.Options{
		IncludeCollections:   true,
		IncludeKnowledgeBase: true,
	})
	require.True(t, res.Success, "a timed out request fails only its record")
	assert.Zero(t, res.MigratedItems.Posts)
	assert.Equal(t, 1, res.MigratedItems.Users)
	assert.Equal(t, 1, res.MigratedItems.Collections)
	assert.Equal(t, 1, res.MigratedItems.KnowledgeDocuments, "groups after posts still import")

	var postFailures []migration.RecordError
	for _, f := range res.Failures {
		if f.Group == "posts" {
			postFailures = append(postFailures, f)
		}
	}
	require.Len(t, postFailures, 1)
	assert.Equal(t, string(apperr.CodeRemoteUnavailable), postFailures[0].Code)
	assert.NotEmpty(t, res.Errors)
}

const closedState = "closed"
