package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/snapshot"
	"github.com/memoraapp/memora/internal/store/sqlite"
)

const asAda = "X-User-ID: usr_ada"

type testServer struct {
	*Server
	api   humatest.TestAPI
	store *sqlite.Store
	index *docindex.Index
}

// setupTestServer creates a server over fresh stores in a temp dir.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "memora.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := docindex.Open(docindex.Options{DataPath: filepath.Join(dir, "index")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	s := NewServer(Config{Title: "Memora API Test"}, st, idx, nil)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		store:  st,
		index:  idx,
	}
}

// seedUser creates the user asAda acts as.
func (ts *testServer) seedUser(t *testing.T) {
	t.Helper()
	resp := ts.api.Post("/api/v1/users", map[string]any{
		"id":       "usr_ada",
		"username": "ada",
		"email":    "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

type envelopeOf[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) envelopeOf[T] {
	t.Helper()
	var env envelopeOf[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "success", env.Message)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Contains(t, env.Data.Components, "database")
	assert.Contains(t, env.Data.Components, "index")
}

func TestRequiresUserHeader(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/categories")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	env := decode[ErrorData](t, resp)
	assert.Equal(t, http.StatusUnauthorized, env.Code)
	assert.Contains(t, env.Message, "X-User-ID")
	assert.Equal(t, "UNAUTHORIZED", env.Data.Error)
}

func TestUsers_CreateAndMe(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)

	resp := ts.api.Get("/api/v1/users/me", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode[domain.User](t, resp)
	assert.Equal(t, "usr_ada", me.Data.ID)
	assert.Equal(t, "ada", me.Data.Username)

	resp = ts.api.Get("/api/v1/users/me", "X-User-ID: usr_nobody")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorData](t, resp).Data.Error)
}

func TestUsers_CredentialHashNotExposed(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/users", map[string]any{
		"id":            "usr_ada",
		"username":      "ada",
		"email":         "ada@example.com",
		"password_hash": "$argon2id$secret",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.NotContains(t, resp.Body.String(), "password_hash")

	resp = ts.api.Get("/api/v1/users")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/users", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "password_hash")
	assert.Len(t, decode[[]domain.User](t, resp).Data, 1)

	resp = ts.api.Get("/api/v1/users/me", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "password_hash")

	resp = ts.api.Get("/api/v1/users/me?include_credential=true", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "$argon2id$secret", decode[domain.User](t, resp).Data.PasswordHash)
}

func TestUsers_DuplicateIsAlreadyExists(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)

	resp := ts.api.Post("/api/v1/users", map[string]any{
		"id":       "usr_ada",
		"username": "ada",
		"email":    "ada@example.com",
	})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ALREADY_EXISTS", decode[ErrorData](t, resp).Data.Error)
}

func TestUsers_InvalidBodyIsValidationError(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/users", map[string]any{"username": "nomail"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[ErrorData](t, resp).Data.Error)
}

func TestPosts_PrivateOnlyOnRequest(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)

	resp := ts.api.Post("/api/v1/collections", asAda, map[string]any{"id": "col_1", "name": "Reading"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	coll := decode[domain.Collection](t, resp)
	assert.Equal(t, "usr_ada", coll.Data.UserID, "owner defaults to the acting user")

	for _, p := range []map[string]any{
		{"id": "pst_public", "refer_collection_id": "col_1", "description": "hello"},
		{"id": "pst_private", "refer_collection_id": "col_1", "description": "secret", "is_private": true},
	} {
		resp := ts.api.Post("/api/v1/posts", asAda, p)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp = ts.api.Get("/api/v1/posts", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	public := decode[[]domain.Post](t, resp)
	require.Len(t, public.Data, 1)
	assert.Equal(t, "pst_public", public.Data[0].ID)

	resp = ts.api.Get("/api/v1/posts?include_private=true", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]domain.Post](t, resp).Data, 2)
}

func TestPosts_UnknownCollectionIsRejected(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)

	resp := ts.api.Post("/api/v1/posts", asAda, map[string]any{"id": "pst_1", "refer_collection_id": "col_missing"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())
}

func TestComments_ScopedToPath(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)
	require.Equal(t, http.StatusCreated, ts.api.Post("/api/v1/collections", asAda, map[string]any{"id": "col_1"}).Code)
	require.Equal(t, http.StatusCreated, ts.api.Post("/api/v1/posts", asAda, map[string]any{"id": "pst_1", "refer_collection_id": "col_1"}).Code)

	resp := ts.api.Post("/api/v1/posts/pst_1/comments", asAda, map[string]any{"content": "first", "post_id": "ignored"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	c := decode[domain.Comment](t, resp)
	assert.Equal(t, "pst_1", c.Data.PostID)
	assert.Equal(t, "usr_ada", c.Data.UserID)

	resp = ts.api.Get("/api/v1/posts/pst_1/comments", asAda)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]domain.Comment](t, resp).Data, 1)

	resp = ts.api.Get("/api/v1/posts/pst_missing/comments", asAda)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLikes_RepeatReportsNotInserted(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)

	like := map[string]any{"asset_id": "pst_1", "asset_type": "post"}

	resp := ts.api.Post("/api/v1/likes", asAda, like)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decode[LikeResult](t, resp)
	assert.True(t, first.Data.Inserted)
	require.NotNil(t, first.Data.Like)
	assert.Equal(t, "usr_ada", first.Data.Like.UserID)

	resp = ts.api.Post("/api/v1/likes", asAda, like)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[LikeResult](t, resp).Data.Inserted)

	resp = ts.api.Get("/api/v1/likes", asAda)
	assert.Len(t, decode[[]domain.Like](t, resp).Data, 1)
}

func TestListsAreEmptyArrays(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{
		"/api/v1/categories",
		"/api/v1/collections",
		"/api/v1/collection-details",
		"/api/v1/posts",
		"/api/v1/likes",
		"/api/v1/attachments",
		"/api/v1/knowledge-documents",
	} {
		resp := ts.api.Get(path, asAda)
		require.Equal(t, http.StatusOK, resp.Code, path)
		env := decode[json.RawMessage](t, resp)
		assert.JSONEq(t, `[]`, string(env.Data), path)
	}
}

func TestKnowledgeDocuments_AddAndSearch(t *testing.T) {
	ts := setupTestServer(t)

	for _, content := range []string{
		"Goroutines are lightweight threads managed by the runtime.",
		"Sourdough needs a long, cold fermentation.",
	} {
		resp := ts.api.Post("/api/v1/knowledge-documents", asAda, map[string]any{"content": content})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		assert.NotEmpty(t, decode[domain.KnowledgeDocument](t, resp).Data.ID)
	}

	resp := ts.api.Get("/api/v1/knowledge-documents", asAda)
	assert.Len(t, decode[[]domain.KnowledgeDocument](t, resp).Data, 2)

	resp = ts.api.Get("/api/v1/knowledge-documents/search?q=goroutines&limit=5", asAda)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	hits := decode[[]docindex.ScoredDocument](t, resp)
	require.Len(t, hits.Data, 1)
	assert.Contains(t, hits.Data[0].Document.Content, "Goroutines")

	resp = ts.api.Post("/api/v1/knowledge-documents", asAda, map[string]any{"content": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExport_ReturnsUserGraph(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedUser(t)
	require.Equal(t, http.StatusCreated, ts.api.Post("/api/v1/collections", asAda, map[string]any{"id": "col_1"}).Code)
	require.Equal(t, http.StatusCreated, ts.api.Post("/api/v1/posts", asAda, map[string]any{"id": "pst_1", "refer_collection_id": "col_1", "is_private": true}).Code)

	resp := ts.api.Get("/api/v1/migration/export", asAda)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[json.RawMessage](t, resp)
	snap, err := snapshot.FromJSON(env.Data)
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)
	assert.Len(t, snap.Collections, 1)
	require.Len(t, snap.Posts, 1, "private posts are exported")
	assert.True(t, snap.Posts[0].IsPrivate)
}
