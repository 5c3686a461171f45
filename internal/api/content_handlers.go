package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/memoraapp/memora/internal/domain"
)

// bodyInput is a request carrying a JSON body.
type bodyInput[T any] struct {
	Body T
}

// bodyOutput is a response carrying a JSON body.
type bodyOutput[T any] struct {
	Body T
}

func out[T any](v T) *bodyOutput[T] {
	return &bodyOutput[T]{Body: v}
}

// registerList registers a GET route listing records of the acting user.
func registerList[T any](s *Server, id, path, tag string, list func(ctx context.Context, userID string) ([]T, error)) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodGet,
		Path:        path,
		Summary:     "List " + tag,
		Tags:        []string{tag},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[[]T], error) {
		userID, err := GetUserID(ctx)
		if err != nil {
			return nil, err
		}
		items, err := list(ctx, userID)
		if err != nil {
			return nil, toHTTPError(err)
		}
		if items == nil {
			items = []T{}
		}
		return out(items), nil
	})
}

// registerCreate registers a POST route creating one record. Body validation
// is left to the store so migrated records keep their original shape.
func registerCreate[T any](s *Server, id, path, tag string, create func(ctx context.Context, userID string, v *T) error) {
	huma.Register(s.api, huma.Operation{
		OperationID:      id,
		Method:           http.MethodPost,
		Path:             path,
		Summary:          "Create " + tag,
		Tags:             []string{tag},
		DefaultStatus:    http.StatusCreated,
		SkipValidateBody: true,
	}, func(ctx context.Context, in *bodyInput[T]) (*bodyOutput[*T], error) {
		userID, err := GetUserID(ctx)
		if err != nil {
			return nil, err
		}
		v := in.Body
		if err := create(ctx, userID, &v); err != nil {
			return nil, toHTTPError(err)
		}
		return out(&v), nil
	})
}

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get the acting user",
		Tags:        []string{"Users"},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Tags:        []string{"Users"},
	}, s.handleListUsers)

	// Creating a user needs no acting user: it is the first call of a migration.
	huma.Register(s.api, huma.Operation{
		OperationID:      "createUser",
		Method:           http.MethodPost,
		Path:             "/api/v1/users",
		Summary:          "Create user",
		Tags:             []string{"Users"},
		DefaultStatus:    http.StatusCreated,
		SkipValidateBody: true,
	}, s.handleCreateUser)
}

// CurrentUserInput selects whether the acting user's credential hash is
// returned. Migration exports ask for it; nothing else does.
type CurrentUserInput struct {
	IncludeCredential bool `query:"include_credential" doc:"Include the password hash"`
}

// withoutCredential returns a copy of u safe to show to clients.
func withoutCredential(u *domain.User) *domain.User {
	c := *u
	c.PasswordHash = ""
	return &c
}

func (s *Server) handleGetCurrentUser(ctx context.Context, in *CurrentUserInput) (*bodyOutput[*domain.User], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if !in.IncludeCredential {
		u = withoutCredential(u)
	}
	return out(u), nil
}

func (s *Server) handleListUsers(ctx context.Context, _ *struct{}) (*bodyOutput[[]*domain.User], error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	resp := make([]*domain.User, 0, len(users))
	for _, u := range users {
		resp = append(resp, withoutCredential(u))
	}
	return out(resp), nil
}

func (s *Server) handleCreateUser(ctx context.Context, in *bodyInput[domain.User]) (*bodyOutput[*domain.User], error) {
	u := in.Body
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return nil, toHTTPError(err)
	}
	s.logger.Info("user created", "user_id", u.ID)
	return out(withoutCredential(&u)), nil
}

func (s *Server) registerCategoryRoutes() {
	registerList(s, "listCategories", "/api/v1/categories", "Categories", s.store.ListCategoriesByUser)
	registerCreate(s, "createCategory", "/api/v1/categories", "Categories",
		func(ctx context.Context, userID string, c *domain.Category) error {
			if c.UserID == "" {
				c.UserID = userID
			}
			return s.store.CreateCategory(ctx, c)
		})
}

func (s *Server) registerCollectionRoutes() {
	registerList(s, "listCollections", "/api/v1/collections", "Collections", s.store.ListCollectionsByUser)
	registerCreate(s, "createCollection", "/api/v1/collections", "Collections",
		func(ctx context.Context, userID string, c *domain.Collection) error {
			if c.UserID == "" {
				c.UserID = userID
			}
			return s.store.CreateCollection(ctx, c)
		})

	registerList(s, "listCollectionDetails", "/api/v1/collection-details", "Collection details", s.store.ListCollectionDetailsByUser)
	registerCreate(s, "createCollectionDetail", "/api/v1/collection-details", "Collection details",
		func(ctx context.Context, _ string, d *domain.CollectionDetail) error {
			return s.store.CreateCollectionDetail(ctx, d)
		})
}
