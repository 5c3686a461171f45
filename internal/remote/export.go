package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/memoraapp/memora/internal/snapshot"
)

// commentConcurrency bounds parallel per-post comment fetches.
const commentConcurrency = 8

// Export fetches the user's content graph. Group lists are fetched
// concurrently, then comments are fetched per post. A rejected request
// yields an envelope carrying its code and message with a nil error;
// transport failures are returned as errors.
func (c *Client) Export(ctx context.Context) (*Envelope[snapshot.Snapshot], error) {
	var raw snapshot.Raw
	var me json.RawMessage

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(path string, dst *json.RawMessage) {
		g.Go(func() error {
			data, err := c.do(gctx, http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			*dst = data
			return nil
		})
	}
	fetch("users/me?include_credential=true", &me)
	fetch("categories", &raw.Categories)
	fetch("collections", &raw.Collections)
	fetch("collection-details", &raw.CollectionDetails)
	fetch("posts?include_private=true", &raw.Posts)
	fetch("likes", &raw.Likes)
	fetch("knowledge-documents", &raw.KnowledgeDocuments)
	fetch("attachments", &raw.Attachments)
	if err := g.Wait(); err != nil {
		return exportFailure(err)
	}

	if gjson.GetBytes(me, "id").Exists() {
		raw.Users = json.RawMessage("[" + string(me) + "]")
	}

	comments, err := c.fetchComments(ctx, raw.Posts)
	if err != nil {
		return exportFailure(err)
	}
	raw.Comments = comments

	snap, err := snapshot.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize export: %w", err)
	}

	c.logger.Info("remote export complete",
		"user_id", c.userID,
		"records", snap.Counts().Total(),
	)
	return &Envelope[snapshot.Snapshot]{Code: http.StatusOK, Message: "success", Data: *snap}, nil
}

// fetchComments loads comments for every post in posts, a JSON array.
func (c *Client) fetchComments(ctx context.Context, posts json.RawMessage) (json.RawMessage, error) {
	ids := gjson.GetBytes(posts, "#.id").Array()
	if len(ids) == 0 {
		return nil, nil
	}

	parts := make([]json.RawMessage, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			data, err := c.do(gctx, http.MethodGet, "posts/"+url.PathEscape(id.String())+"/comments", nil)
			if err != nil {
				return err
			}
			parts[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return joinArrays(parts), nil
}

func exportFailure(err error) (*Envelope[snapshot.Snapshot], error) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return &Envelope[snapshot.Snapshot]{Code: rej.Code, Message: rej.Message}, nil
	}
	return nil, err
}

// joinArrays concatenates JSON arrays into one. Empty or non-array parts are
// skipped.
func joinArrays(parts []json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for _, p := range parts {
		r := gjson.ParseBytes(p)
		if !r.IsArray() {
			continue
		}
		r.ForEach(func(_, item gjson.Result) bool {
			if n > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(item.Raw)
			n++
			return true
		})
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
