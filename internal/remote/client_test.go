package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
)

func writeEnvelope(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	msg := "success"
	if code >= 300 {
		msg = http.StatusText(code)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": msg, "data": data})
}

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{BaseURL: srv.URL, UserID: "u1", RateLimit: -1, Burst: 1}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// exportServer serves a user with two posts, each with comments.
func exportServer(t *testing.T, inflight, peak *int32) http.Handler {
	mux := http.NewServeMux()
	list := func(path string, data any) {
		mux.HandleFunc("GET /api/v1/"+path, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "u1", r.Header.Get(userHeader))
			writeEnvelope(w, http.StatusOK, data)
		})
	}
	list("users/me", map[string]any{"id": "u1", "username": "ada", "email": "ada@example.com", "password_hash": "h"})
	list("categories", []any{})
	list("collections", []any{map[string]any{"id": "c1", "user_id": "u1", "name": "Books"}})
	list("collection-details", []any{})
	list("likes", []any{map[string]any{"user_id": "u1", "asset_id": "p1", "asset_type": "post"}})
	list("knowledge-documents", []any{})
	list("attachments", []any{})
	mux.HandleFunc("GET /api/v1/posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("include_private"))
		writeEnvelope(w, http.StatusOK, []any{
			map[string]any{"id": "p1", "user_id": "u1", "refer_collection_id": "c1", "description": "one"},
			map[string]any{"id": "p2", "user_id": "u1", "collection_id": "c1", "content": "two", "is_private": true},
		})
	})
	mux.HandleFunc("GET /api/v1/posts/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(inflight, 1)
		defer atomic.AddInt32(inflight, -1)
		for {
			p := atomic.LoadInt32(peak)
			if n <= p || atomic.CompareAndSwapInt32(peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		id := r.PathValue("id")
		writeEnvelope(w, http.StatusOK, []any{
			map[string]any{"id": "cm-" + id, "post_id": id, "user_id": "u2", "content": "on " + id},
		})
	})
	return mux
}

func TestClient_Export(t *testing.T) {
	var inflight, peak int32
	c := newTestClient(t, exportServer(t, &inflight, &peak))

	env, err := c.Export(context.Background())
	require.NoError(t, err)
	require.True(t, env.OK())

	snap := env.Data
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "ada", snap.Users[0].Username)
	assert.Equal(t, "h", snap.Users[0].PasswordHash)
	assert.Len(t, snap.Collections, 1)
	require.Len(t, snap.Posts, 2)
	assert.Equal(t, "c1", snap.Posts[0].CollectionID)
	assert.Equal(t, "two", snap.Posts[1].Description)
	assert.True(t, snap.Posts[1].IsPrivate)
	assert.Len(t, snap.Comments, 2)
	require.Len(t, snap.Likes, 1)
	assert.Equal(t, domain.AssetPost, snap.Likes[0].AssetKind)
	assert.EqualValues(t, 2, atomic.LoadInt32(&peak), "comments should be fetched in parallel")
}

func TestClient_Export_RejectedEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeEnvelope(w, http.StatusForbidden, nil)
	})
	c := newTestClient(t, mux)

	env, err := c.Export(context.Background())
	require.NoError(t, err)
	assert.False(t, env.OK())
	assert.Equal(t, http.StatusForbidden, env.Code)
	assert.Equal(t, "Forbidden", env.Message)
	assert.Equal(t, "closed", c.BreakerState(), "rejections do not trip the breaker")
}

func TestClient_Export_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, RateLimit: -1}, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Export(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
}

func TestClient_EnvelopeCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "success", status: http.StatusOK, body: `{"code":200,"message":"success","data":{"id":"c9"}}`},
		{name: "created", status: http.StatusCreated, body: `{"code":201,"message":"success","data":{"id":"c9"}}`},
		{name: "code in body wins", status: http.StatusOK, body: `{"code":409,"message":"exists","data":null}`, wantErr: apperr.ErrRemoteRejected},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, wantErr: apperr.ErrRemoteUnavailable},
		{name: "not an envelope", status: http.StatusOK, body: `<html>`, wantErr: apperr.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			coll := &domain.Collection{UserID: "u1", Name: "n"}
			err := c.CreateCollection(context.Background(), coll)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "c9", coll.ID)
		})
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), func(cfg *Config) {
		cfg.Breaker = BreakerConfig{MaxFailures: 2, Timeout: time.Minute}
	})

	ctx := context.Background()
	for range 2 {
		err := c.CreateUser(ctx, &domain.User{Username: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())

	err := c.CreateUser(ctx, &domain.User{Username: "x"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "open breaker must not reach the server")
}

func TestClient_CreateLike(t *testing.T) {
	var seen int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/likes", r.URL.Path)
		var like domain.Like
		require.NoError(t, json.NewDecoder(r.Body).Decode(&like))
		like.ID = "l1"
		first := atomic.AddInt32(&seen, 1) == 1
		writeEnvelope(w, http.StatusOK, LikeResult{Inserted: first, Like: &like})
	}))

	like := &domain.Like{UserID: "u1", AssetID: "p1", AssetKind: domain.AssetPost}
	inserted, err := c.CreateLike(context.Background(), like)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "l1", like.ID)

	inserted, err = c.CreateLike(context.Background(), like)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestClient_CreateCommentPath(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/posts/p 1/comments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeEnvelope(w, http.StatusCreated, map[string]any{"id": "cm1", "post_id": "p 1"})
	}))

	cm := &domain.Comment{PostID: "p 1", UserID: "u1", Content: "hi"}
	require.NoError(t, c.CreateComment(context.Background(), cm))
	assert.Equal(t, "cm1", cm.ID)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestJoinArrays(t *testing.T) {
	got := joinArrays([]json.RawMessage{
		json.RawMessage(`[1,2]`),
		nil,
		json.RawMessage(`{"x":1}`),
		json.RawMessage(`[{"a":"b"}]`),
	})
	assert.JSONEq(t, `[1,2,{"a":"b"}]`, string(got))
}
