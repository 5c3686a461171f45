package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/store"
)

// ListPostsInput selects which of the acting user's posts to return.
type ListPostsInput struct {
	IncludePrivate bool `query:"include_private" doc:"Include private posts"`
}

// PostCommentsInput identifies a post.
type PostCommentsInput struct {
	ID string `path:"id" doc:"Post ID"`
}

// CreateCommentInput is a comment on the post in the path.
type CreateCommentInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body domain.Comment
}

// LikeResult reports whether a like was recorded or already existed.
type LikeResult struct {
	Inserted bool         `json:"inserted" doc:"False when the like already existed"`
	Like     *domain.Like `json:"like"`
}

func (s *Server) registerPostRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts",
		Summary:     "List posts",
		Description: "Lists the acting user's posts. Private posts are included only on request.",
		Tags:        []string{"Posts"},
	}, s.handleListPosts)

	registerCreate(s, "createPost", "/api/v1/posts", "Posts",
		func(ctx context.Context, userID string, p *domain.Post) error {
			if p.UserID == "" {
				p.UserID = userID
			}
			return s.store.CreatePost(ctx, p)
		})

	huma.Register(s.api, huma.Operation{
		OperationID: "listPostComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}/comments",
		Summary:     "List comments on a post",
		Tags:        []string{"Posts"},
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID:      "createPostComment",
		Method:           http.MethodPost,
		Path:             "/api/v1/posts/{id}/comments",
		Summary:          "Comment on a post",
		Tags:             []string{"Posts"},
		DefaultStatus:    http.StatusCreated,
		SkipValidateBody: true,
	}, s.handleCreateComment)
}

func (s *Server) handleListPosts(ctx context.Context, in *ListPostsInput) (*bodyOutput[[]*domain.Post], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.store.ListPostsByUser(ctx, userID, store.PostFilter{IncludePrivate: in.IncludePrivate})
	if err != nil {
		return nil, toHTTPError(err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return out(posts), nil
}

func (s *Server) handleListComments(ctx context.Context, in *PostCommentsInput) (*bodyOutput[[]*domain.Comment], error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPost(ctx, in.ID); err != nil {
		return nil, toHTTPError(err)
	}
	comments, err := s.store.ListCommentsByPost(ctx, in.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	return out(comments), nil
}

func (s *Server) handleCreateComment(ctx context.Context, in *CreateCommentInput) (*bodyOutput[*domain.Comment], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	c := in.Body
	c.PostID = in.ID
	if c.UserID == "" {
		c.UserID = userID
	}
	if err := s.store.CreateComment(ctx, &c); err != nil {
		return nil, toHTTPError(err)
	}
	return out(&c), nil
}

func (s *Server) registerLikeRoutes() {
	registerList(s, "listLikes", "/api/v1/likes", "Likes", s.store.ListLikesByUser)

	huma.Register(s.api, huma.Operation{
		OperationID:      "createLike",
		Method:           http.MethodPost,
		Path:             "/api/v1/likes",
		Summary:          "Like a post or comment",
		Description:      "Recording a like that already exists succeeds with inserted=false.",
		Tags:             []string{"Likes"},
		SkipValidateBody: true,
	}, s.handleCreateLike)
}

func (s *Server) handleCreateLike(ctx context.Context, in *bodyInput[domain.Like]) (*bodyOutput[LikeResult], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	l := in.Body
	if l.UserID == "" {
		l.UserID = userID
	}
	inserted, err := s.store.CreateLike(ctx, &l)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return out(LikeResult{Inserted: inserted, Like: &l}), nil
}

func (s *Server) registerAttachmentRoutes() {
	registerList(s, "listAttachments", "/api/v1/attachments", "Attachments", s.store.ListAttachmentsByUser)
	registerCreate(s, "createAttachment", "/api/v1/attachments", "Attachments",
		func(ctx context.Context, userID string, a *domain.Attachment) error {
			if a.UserID == "" {
				a.UserID = userID
			}
			return s.store.CreateAttachment(ctx, a)
		})
}
