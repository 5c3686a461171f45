// Package migration moves a user's content graph between the normal-mode
// server and the standalone stores.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/memoraapp/memora/internal/auth"
	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/mode"
	"github.com/memoraapp/memora/internal/snapshot"
)

// Default collection attributes for posts that arrive without one.
const (
	defaultCollectionName        = "Default collection for post %s"
	defaultCollectionDescription = "Auto-created during migration"
)

var errMissingCredential = errors.New("missing password credential")

// resetSecretBytes is the random credential size used by CredentialForceReset.
const resetSecretBytes = 32

// Engine runs migrations. It holds no state between calls.
type Engine struct {
	mode   mode.Provider
	local  Endpoint
	remote Endpoint
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an engine moving content between local and remote.
func NewEngine(modes mode.Provider, local, remote Endpoint, log *slog.Logger) *Engine {
	return &Engine{
		mode:   modes,
		local:  local,
		remote: remote,
		logger: logger.OrDiscard(log),
		now:    time.Now,
	}
}

// Migrate exports from the direction's source side and imports into the
// other side.
func (e *Engine) Migrate(ctx context.Context, dir domain.Direction, opts Options) *Result {
	var src Source
	switch dir {
	case domain.ToStandalone:
		src = e.remote
	case domain.ToNormal:
		src = e.local
	}
	return e.MigrateFrom(ctx, dir, src, opts)
}

// MigrateFrom is Migrate with an explicit source, such as an Archive.
func (e *Engine) MigrateFrom(ctx context.Context, dir domain.Direction, src Source, opts Options) *Result {
	start := e.now()
	res := newResult()
	res.Direction = string(dir)
	defer func() { res.Duration = e.now().Sub(start) }()

	dst, err := e.prepare(ctx, dir, src, opts)
	if err != nil {
		e.logger.Error("migration refused", "direction", dir, "error", err)
		return res.fail(err)
	}

	snap, err := src.Export(ctx)
	if err != nil {
		e.logger.Error("migration export failed", "direction", dir, "error", err)
		return res.fail(fmt.Errorf("export failed: %w", err))
	}

	e.logger.Info("migration started",
		"direction", dir,
		"records", snap.Counts().Total(),
		"include_collections", opts.IncludeCollections,
		"include_private_posts", opts.IncludePrivatePosts,
		"include_knowledge_base", opts.IncludeKnowledgeBase,
	)

	run := &run{
		engine:  e,
		dst:     dst,
		opts:    opts,
		res:     res,
		skippedPosts:    make(map[string]bool),
		skippedComments: make(map[string]bool),
		usedIDs:         make(map[string]bool),
	}
	if err := run.importAll(ctx, snap); err != nil {
		return res.fail(err)
	}

	e.logger.Info("migration finished",
		"direction", dir,
		"users", res.MigratedItems.Users,
		"collections", res.MigratedItems.Collections,
		"posts", res.MigratedItems.Posts,
		"comments", res.MigratedItems.Comments,
		"documents", res.MigratedItems.KnowledgeDocuments,
		"attachments", res.MigratedItems.Attachments,
		"failures", len(res.Failures),
	)
	return res
}

// prepare checks options and mode and picks the destination.
func (e *Engine) prepare(ctx context.Context, dir domain.Direction, src Source, opts Options) (Destination, error) {
	if _, err := domain.ParseDirection(string(dir)); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, apperr.Internalf("no source configured for %s", dir)
	}

	dst := e.local
	if dir == domain.ToNormal {
		dst = e.remote
	}
	if dst == nil {
		return nil, apperr.Internalf("no destination configured for %s", dir)
	}

	if e.mode != nil {
		current, err := e.mode.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("read mode: %w", err)
		}
		if want := dir.SourceMode(); current != want {
			return nil, apperr.ModeMismatchf("cannot migrate %s while in %s mode", dir, current)
		}
	}
	return dst, nil
}

// run carries the state of one import pass.
type run struct {
	engine *Engine
	dst    Destination
	opts   Options
	res    *Result

	// placeholderHash caches the hashed placeholder credential.
	placeholderHash string
	// skippedPosts holds ids and post_ids of private posts left out of the
	// import. skippedComments holds ids of their comments. Sources number
	// posts and comments independently, so the sets never mix.
	skippedPosts    map[string]bool
	skippedComments map[string]bool
	// usedIDs holds synthesized attachment ids.
	usedIDs map[string]bool
}

type step struct {
	group string
	fn    func(context.Context, *snapshot.Snapshot) (imported, failed int)
}

func (r *run) importAll(ctx context.Context, snap *snapshot.Snapshot) error {
	steps := []step{
		{snapshot.GroupUsers, r.importUsers},
		{snapshot.GroupCategories, r.importCategories},
		{snapshot.GroupCollections, r.importCollections},
		{snapshot.GroupCollectionDetails, r.importDetails},
		{snapshot.GroupPosts, r.importPosts},
		{snapshot.GroupComments, r.importComments},
		{snapshot.GroupLikes, r.importLikes},
		{snapshot.GroupKnowledgeDocuments, r.importDocuments},
		{snapshot.GroupAttachments, r.importAttachments},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("migration interrupted before %s: %w", s.group, err)
		}
		imported, failed := r.runStep(ctx, s, snap)
		r.engine.logger.Info("imported group",
			"group", s.group,
			"imported", imported,
			"failed", failed,
		)
	}
	return nil
}

// runStep isolates a group so a panic inside it does not abort later groups.
func (r *run) runStep(ctx context.Context, s step, snap *snapshot.Snapshot) (imported, failed int) {
	defer func() {
		if p := recover(); p != nil {
			r.engine.logger.Error("group aborted", "group", s.group, "panic", p)
			r.res.recordFailure(s.group, "*", fmt.Errorf("group aborted: %v", p))
			failed++
		}
	}()
	return s.fn(ctx, snap)
}

func (r *run) importUsers(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	for _, src := range snap.Users {
		u := *src
		err := r.applyCredentialPolicy(&u)
		if err == nil {
			err = r.dst.CreateUser(ctx, &u)
		}
		if err != nil {
			r.res.recordFailure(snapshot.GroupUsers, u.Username, err)
			failed++
			continue
		}
		r.res.MigratedItems.Users++
		imported++
	}
	return imported, failed
}

// applyCredentialPolicy fills a missing credential according to the policy.
func (r *run) applyCredentialPolicy(u *domain.User) error {
	if u.HasCredential() {
		return nil
	}

	switch r.opts.Credentials {
	case CredentialForceReset:
		secret, err := auth.RandomSecret(resetSecretBytes)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(secret)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		u.MustResetPassword = true
		return nil
	case CredentialPlaceholder:
		if r.placeholderHash == "" {
			hash, err := auth.HashPassword(r.opts.Placeholder)
			if err != nil {
				return err
			}
			r.placeholderHash = hash
		}
		u.PasswordHash = r.placeholderHash
		return nil
	default:
		return errMissingCredential
	}
}

func (r *run) importCategories(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	for _, src := range snap.Categories {
		c := *src
		if err := r.dst.CreateCategory(ctx, &c); err != nil {
			r.res.recordFailure(snapshot.GroupCategories, c.Name, err)
			failed++
			continue
		}
		imported++
	}
	return imported, failed
}

func (r *run) importCollections(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	if !r.opts.IncludeCollections {
		return 0, 0
	}
	for _, src := range snap.Collections {
		c := *src
		if c.CategoryID != nil && *c.CategoryID == "" {
			c.CategoryID = nil
		}
		if err := r.dst.CreateCollection(ctx, &c); err != nil {
			r.res.recordFailure(snapshot.GroupCollections, collectionKey(&c), err)
			failed++
			continue
		}
		r.res.MigratedItems.Collections++
		imported++
	}
	return imported, failed
}

func collectionKey(c *domain.Collection) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func (r *run) importDetails(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	if !r.opts.IncludeCollections {
		return 0, 0
	}
	for _, src := range snap.CollectionDetails {
		d := *src
		if err := r.dst.CreateCollectionDetail(ctx, &d); err != nil {
			r.res.recordFailure(snapshot.GroupCollectionDetails, d.CollectionID+"/"+d.Key, err)
			failed++
			continue
		}
		imported++
	}
	return imported, failed
}

func (r *run) importPosts(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	for _, src := range snap.Posts {
		if src.IsPrivate && !r.opts.IncludePrivatePosts {
			markSkipped(r.skippedPosts, src.ID, src.PostID)
			continue
		}

		p := *src
		var err error
		if p.CollectionID == "" {
			err = r.createPostWithDefaultCollection(ctx, &p)
		} else {
			err = r.dst.CreatePost(ctx, &p)
		}
		if err != nil {
			r.res.recordFailure(snapshot.GroupPosts, p.PostID, err)
			failed++
			continue
		}
		r.res.MigratedItems.Posts++
		imported++
	}
	return imported, failed
}

// createPostWithDefaultCollection synthesizes a collection for p and inserts
// both. The post is never written when the collection cannot be.
func (r *run) createPostWithDefaultCollection(ctx context.Context, p *domain.Post) error {
	ref := p.PostID
	if ref == "" {
		ref = p.ID
	}
	collID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return err
	}
	coll := &domain.Collection{
		ID:          collID,
		UserID:      p.UserID,
		Name:        fmt.Sprintf(defaultCollectionName, ref),
		Description: defaultCollectionDescription,
	}

	if tx, ok := r.dst.(postCollectionCreator); ok {
		if err := tx.CreatePostWithCollection(ctx, coll, p); err != nil {
			return err
		}
	} else {
		if err := r.dst.CreateCollection(ctx, coll); err != nil {
			return fmt.Errorf("create default collection: %w", err)
		}
		p.CollectionID = coll.ID
		if err := r.dst.CreatePost(ctx, p); err != nil {
			return err
		}
	}

	r.res.notice("created default collection %s for post %s", coll.ID, ref)
	return nil
}

func (r *run) importComments(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	for _, src := range snap.Comments {
		if src.PostID != "" && r.skippedPosts[src.PostID] {
			markSkipped(r.skippedComments, src.ID)
			continue
		}
		c := *src
		if err := r.dst.CreateComment(ctx, &c); err != nil {
			r.res.recordFailure(snapshot.GroupComments, commentKey(&c), err)
			failed++
			continue
		}
		r.res.MigratedItems.Comments++
		imported++
	}
	return imported, failed
}

func commentKey(c *domain.Comment) string {
	if c.ID != "" {
		return c.ID
	}
	return c.PostID
}

func (r *run) importLikes(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	for _, src := range snap.Likes {
		if r.likeSkipped(src) {
			continue
		}
		l := *src
		if _, err := r.dst.CreateLike(ctx, &l); err != nil {
			r.res.recordFailure(snapshot.GroupLikes, string(l.AssetKind)+":"+l.AssetID, err)
			failed++
			continue
		}
		imported++
	}
	return imported, failed
}

// likeSkipped reports whether l targets a post or comment left out by the
// privacy filter.
func (r *run) likeSkipped(l *domain.Like) bool {
	if l.AssetID == "" {
		return false
	}
	switch l.AssetKind {
	case domain.AssetPost:
		return r.skippedPosts[l.AssetID]
	case domain.AssetComment:
		return r.skippedComments[l.AssetID]
	}
	return false
}

func markSkipped(set map[string]bool, keys ...string) {
	for _, k := range keys {
		if k != "" {
			set[k] = true
		}
	}
}

func (r *run) importDocuments(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	if !r.opts.IncludeKnowledgeBase {
		return 0, 0
	}
	for _, src := range snap.KnowledgeDocuments {
		d := *src
		if _, err := r.dst.AddKnowledgeDocument(ctx, &d); err != nil {
			r.res.recordFailure(snapshot.GroupKnowledgeDocuments, d.ID, err)
			failed++
			continue
		}
		r.res.MigratedItems.KnowledgeDocuments++
		imported++
	}
	return imported, failed
}

func (r *run) importAttachments(ctx context.Context, snap *snapshot.Snapshot) (imported, failed int) {
	for _, src := range snap.Attachments {
		a := *src
		if a.AttachmentID == "" {
			a.AttachmentID = r.synthesizeAttachmentID(a.ID)
		}
		if err := r.dst.CreateAttachment(ctx, &a); err != nil {
			r.res.recordFailure(snapshot.GroupAttachments, a.AttachmentID, err)
			failed++
			continue
		}
		r.res.MigratedItems.Attachments++
		imported++
	}
	return imported, failed
}

// synthesizeAttachmentID builds att_<source id>_<unix nanos>, unique within
// the run.
func (r *run) synthesizeAttachmentID(sourceID string) string {
	nanos := r.engine.now().UnixNano()
	for {
		v := fmt.Sprintf("att_%s_%d", sourceID, nanos)
		if !r.usedIDs[v] {
			r.usedIDs[v] = true
			return v
		}
		nanos++
	}
}
