package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/memoraapp/memora/internal/auth"
	"github.com/memoraapp/memora/internal/domain"
)

// Group names, used as JSON keys, archive file names and error keys.
const (
	GroupUsers              = "users"
	GroupCategories         = "categories"
	GroupCollections        = "collections"
	GroupCollectionDetails  = "collection_details"
	GroupPosts              = "posts"
	GroupComments           = "comments"
	GroupLikes              = "likes"
	GroupKnowledgeDocuments = "knowledge_documents"
	GroupAttachments        = "attachments"
)

// Raw holds one JSON array per group as received from a source. Missing or
// null groups are treated as empty.
type Raw struct {
	Users              json.RawMessage
	Categories         json.RawMessage
	Collections        json.RawMessage
	CollectionDetails  json.RawMessage
	Posts              json.RawMessage
	Comments           json.RawMessage
	Likes              json.RawMessage
	KnowledgeDocuments json.RawMessage
	Attachments        json.RawMessage
}

// FromJSON normalizes a bulk export object such as
// {"users":[...],"posts":[...],...}. Both snake_case and camelCase group
// keys are accepted.
func FromJSON(bulk []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(bulk) {
		return nil, fmt.Errorf("snapshot payload is not valid JSON")
	}
	root := gjson.ParseBytes(bulk)
	if !root.IsObject() {
		return nil, fmt.Errorf("snapshot payload must be an object")
	}

	group := func(keys ...string) json.RawMessage {
		if r := first(root, keys...); r.Exists() {
			return json.RawMessage(r.Raw)
		}
		return nil
	}

	return FromRaw(Raw{
		Users:              group(GroupUsers),
		Categories:         group(GroupCategories),
		Collections:        group(GroupCollections),
		CollectionDetails:  group(GroupCollectionDetails, "collectionDetails"),
		Posts:              group(GroupPosts),
		Comments:           group(GroupComments),
		Likes:              group(GroupLikes),
		KnowledgeDocuments: group(GroupKnowledgeDocuments, "knowledgeDocuments"),
		Attachments:        group(GroupAttachments),
	})
}

// FromRaw resolves field-name alternatives and value shapes once, producing a
// canonical snapshot. It fails only when a group is not a JSON array.
func FromRaw(raw Raw) (*Snapshot, error) {
	s := &Snapshot{}
	var err error

	if s.Users, err = normalizeGroup(GroupUsers, raw.Users, normalizeUser); err != nil {
		return nil, err
	}
	if s.Categories, err = normalizeGroup(GroupCategories, raw.Categories, normalizeCategory); err != nil {
		return nil, err
	}
	if s.Collections, err = normalizeGroup(GroupCollections, raw.Collections, normalizeCollection); err != nil {
		return nil, err
	}
	if s.CollectionDetails, err = normalizeGroup(GroupCollectionDetails, raw.CollectionDetails, normalizeDetail); err != nil {
		return nil, err
	}
	if s.Posts, err = normalizeGroup(GroupPosts, raw.Posts, normalizePost); err != nil {
		return nil, err
	}
	if s.Comments, err = normalizeGroup(GroupComments, raw.Comments, normalizeComment); err != nil {
		return nil, err
	}
	if s.Likes, err = normalizeGroup(GroupLikes, raw.Likes, normalizeLike); err != nil {
		return nil, err
	}
	if s.KnowledgeDocuments, err = normalizeGroup(GroupKnowledgeDocuments, raw.KnowledgeDocuments, normalizeDocument); err != nil {
		return nil, err
	}
	if s.Attachments, err = normalizeGroup(GroupAttachments, raw.Attachments, normalizeAttachment); err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeGroup[T any](name string, raw json.RawMessage, fn func(gjson.Result) *T) ([]*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s: payload is not valid JSON", name)
	}
	arr := gjson.ParseBytes(raw)
	if arr.Type == gjson.Null {
		return nil, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: expected an array", name)
	}

	var out []*T
	arr.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			out = append(out, fn(item))
		}
		return true
	})
	return out, nil
}

func normalizeUser(r gjson.Result) *domain.User {
	u := &domain.User{
		ID:                str(r, "id"),
		Username:          str(r, "username", "name"),
		Email:             str(r, "email"),
		PasswordHash:      str(r, "password_hash", "hashed_password"),
		MustResetPassword: first(r, "must_reset_password").Bool(),
		AvatarURL:         str(r, "avatar_url"),
		Timestamps:        timestamps(r),
	}
	if u.PasswordHash == "" {
		if plain := str(r, "password"); plain != "" {
			u.PasswordHash = hashPlain(plain)
		}
	}
	return u
}

// hashPlain turns a plaintext credential into an argon2id hash. Values that
// already are argon2id hashes pass through; a hashing failure drops the
// credential so the credential policy decides what happens.
func hashPlain(pw string) string {
	if auth.IsHash(pw) {
		return pw
	}
	h, err := auth.HashPassword(pw)
	if err != nil {
		return ""
	}
	return h
}

func normalizeCategory(r gjson.Result) *domain.Category {
	return &domain.Category{
		ID:              str(r, "id"),
		UserID:          str(r, "user_id"),
		Name:            str(r, "name"),
		Emoji:           str(r, "emoji"),
		KnowledgeBaseID: str(r, "knowledge_base_id"),
	}
}

func normalizeCollection(r gjson.Result) *domain.Collection {
	c := &domain.Collection{
		ID:          str(r, "id"),
		UserID:      str(r, "user_id"),
		Name:        str(r, "name"),
		Description: str(r, "description"),
		Tags:        tags(first(r, "tags")),
		Timestamps:  timestamps(r),
	}
	if cat := str(r, "category_id"); cat != "" {
		c.CategoryID = &cat
	}
	return c
}

func normalizeDetail(r gjson.Result) *domain.CollectionDetail {
	d := &domain.CollectionDetail{
		ID:           str(r, "id"),
		CollectionID: str(r, "collection_id"),
		Key:          str(r, "key"),
		Timestamps:   timestamps(r),
	}
	if v := r.Get("value"); v.Exists() {
		d.Value = json.RawMessage(v.Raw)
	}
	return d
}

func normalizePost(r gjson.Result) *domain.Post {
	p := &domain.Post{
		ID:           str(r, "id"),
		PostID:       str(r, "post_id"),
		UserID:       str(r, "user_id"),
		CollectionID: str(r, "collection_id", "refer_collection_id"),
		Description:  str(r, "content", "description"),
		IsPrivate:    first(r, "is_private").Bool(),
		Timestamps:   timestamps(r),
	}
	if p.PostID == "" {
		p.PostID = p.ID
	}
	return p
}

func normalizeComment(r gjson.Result) *domain.Comment {
	return &domain.Comment{
		ID:         str(r, "id"),
		PostID:     str(r, "post_id"),
		UserID:     str(r, "user_id"),
		Content:    str(r, "content"),
		Timestamps: timestamps(r),
	}
}

func normalizeLike(r gjson.Result) *domain.Like {
	kind := str(r, "asset_type", "asset_kind")
	// Enum reprs such as "AssetType.post" carry the kind after the dot.
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		kind = kind[i+1:]
	}
	return &domain.Like{
		ID:        str(r, "id"),
		UserID:    str(r, "user_id"),
		AssetID:   str(r, "asset_id"),
		AssetKind: domain.AssetKind(strings.ToLower(kind)),
		CreatedAt: parseTime(first(r, "created_at")),
	}
}

func normalizeDocument(r gjson.Result) *domain.KnowledgeDocument {
	d := &domain.KnowledgeDocument{
		ID:        str(r, "id"),
		Content:   str(r, "content", "document", "text"),
		CreatedAt: parseTime(first(r, "created_at")),
	}
	if m := r.Get("metadata"); m.IsObject() {
		meta := make(map[string]any)
		if err := json.Unmarshal([]byte(m.Raw), &meta); err == nil && len(meta) > 0 {
			d.Metadata = meta
		}
	}
	if e := r.Get("embedding"); e.IsArray() {
		for _, v := range e.Array() {
			d.Embedding = append(d.Embedding, float32(v.Float()))
		}
	}
	return d
}

func normalizeAttachment(r gjson.Result) *domain.Attachment {
	return &domain.Attachment{
		ID:           str(r, "id"),
		AttachmentID: str(r, "attachment_id", "filename"),
		UserID:       str(r, "user_id"),
		URL:          str(r, "url", "file_path"),
		Description:  str(r, "description"),
		CreatedAt:    parseTime(first(r, "created_at")),
	}
}

// first returns the first of keys present with a non-null value.
func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// str returns the first present value as a string. Integers keep their
// decimal form, so numeric ids become their string equivalent.
func str(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := r.Get(k)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

// tags accepts either an array of strings or a comma separated string.
func tags(v gjson.Result) []string {
	if v.IsArray() {
		var out []string
		for _, t := range v.Array() {
			if s := strings.TrimSpace(t.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return domain.ParseTags(v.String())
}

func timestamps(r gjson.Result) domain.Timestamps {
	return domain.Timestamps{
		CreatedAt: parseTime(first(r, "created_at")),
		UpdatedAt: parseTime(first(r, "updated_at")),
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC 3339, naive ISO timestamps (read as UTC) and unix
// seconds or milliseconds. Anything else yields the zero time.
func parseTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		n := v.Int()
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	case gjson.String:
		s := strings.TrimSpace(v.String())
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
