package blog

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStorage keeps everything in process memory. Transactions are
// serialized and roll back by restoring a snapshot.
type MemoryStorage struct {
	mu sync.Mutex
	st *memState
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{st: newMemState()}
}

type memState struct {
	users    map[int64]User
	posts    map[int64]Post
	comments map[int64]Comment
	widget   *Widget
	nextID   map[string]int64
}

func newMemState() *memState {
	return &memState{
		users:    map[int64]User{},
		posts:    map[int64]Post{},
		comments: map[int64]Comment{},
		nextID:   map[string]int64{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    maps.Clone(s.users),
		posts:    maps.Clone(s.posts),
		comments: maps.Clone(s.comments),
		nextID:   maps.Clone(s.nextID),
	}
	if s.widget != nil {
		w := *s.widget
		c.widget = &w
	}
	return c
}

func (s *memState) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (m *MemoryStorage) locked(fn func(st *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func (m *MemoryStorage) InTx(ctx context.Context, fn func(tx Storage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *MemoryStorage) CreateUser(ctx context.Context, u *User) error {
	return m.locked(func(st *memState) error { return st.CreateUser(ctx, u) })
}

func (m *MemoryStorage) UserByID(ctx context.Context, id int64) (u User, err error) {
	err = m.locked(func(st *memState) error { u, err = st.UserByID(ctx, id); return err })
	return u, err
}

func (m *MemoryStorage) UserByLogin(ctx context.Context, login string) (u User, err error) {
	err = m.locked(func(st *memState) error { u, err = st.UserByLogin(ctx, login); return err })
	return u, err
}

func (m *MemoryStorage) UpdateUser(ctx context.Context, u User) error {
	return m.locked(func(st *memState) error { return st.UpdateUser(ctx, u) })
}

func (m *MemoryStorage) TouchUser(ctx context.Context, id int64, at time.Time) error {
	return m.locked(func(st *memState) error { return st.TouchUser(ctx, id, at) })
}

func (m *MemoryStorage) CreatePost(ctx context.Context, p *Post) error {
	return m.locked(func(st *memState) error { return st.CreatePost(ctx, p) })
}

func (m *MemoryStorage) SetPostSlug(ctx context.Context, id int64, slug string) error {
	return m.locked(func(st *memState) error { return st.SetPostSlug(ctx, id, slug) })
}

func (m *MemoryStorage) PostByID(ctx context.Context, id int64) (p Post, err error) {
	err = m.locked(func(st *memState) error { p, err = st.PostByID(ctx, id); return err })
	return p, err
}

func (m *MemoryStorage) PostBySlug(ctx context.Context, slug string) (p Post, err error) {
	err = m.locked(func(st *memState) error { p, err = st.PostBySlug(ctx, slug); return err })
	return p, err
}

func (m *MemoryStorage) PostOwnerBySlug(ctx context.Context, slug string) (id int64, found bool, err error) {
	err = m.locked(func(st *memState) error { id, found, err = st.PostOwnerBySlug(ctx, slug); return err })
	return id, found, err
}

func (m *MemoryStorage) UpdatePost(ctx context.Context, p Post) error {
	return m.locked(func(st *memState) error { return st.UpdatePost(ctx, p) })
}

func (m *MemoryStorage) DeletePost(ctx context.Context, id int64) error {
	return m.locked(func(st *memState) error { return st.DeletePost(ctx, id) })
}

func (m *MemoryStorage) ListPosts(ctx context.Context, f PostFilter) (posts []Post, total int, err error) {
	err = m.locked(func(st *memState) error { posts, total, err = st.ListPosts(ctx, f); return err })
	return posts, total, err
}

func (m *MemoryStorage) CreateComment(ctx context.Context, c *Comment) error {
	return m.locked(func(st *memState) error { return st.CreateComment(ctx, c) })
}

func (m *MemoryStorage) CommentByID(ctx context.Context, id int64) (c Comment, err error) {
	err = m.locked(func(st *memState) error { c, err = st.CommentByID(ctx, id); return err })
	return c, err
}

func (m *MemoryStorage) SetCommentDisabled(ctx context.Context, id int64, disabled bool) error {
	return m.locked(func(st *memState) error { return st.SetCommentDisabled(ctx, id, disabled) })
}

func (m *MemoryStorage) ListComments(ctx context.Context, f CommentFilter) (comments []Comment, total int, err error) {
	err = m.locked(func(st *memState) error { comments, total, err = st.ListComments(ctx, f); return err })
	return comments, total, err
}

func (m *MemoryStorage) Widget(ctx context.Context) (w Widget, err error) {
	err = m.locked(func(st *memState) error { w, err = st.Widget(ctx); return err })
	return w, err
}

func (m *MemoryStorage) SaveWidget(ctx context.Context, w Widget) error {
	return m.locked(func(st *memState) error { return st.SaveWidget(ctx, w) })
}

// memState implements Storage without locking. The caller holds the lock.

func (s *memState) InTx(ctx context.Context, fn func(tx Storage) error) error {
	return fn(s)
}

func (s *memState) userConflict(u User) bool {
	for _, other := range s.users {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) || other.Name == u.Name {
			return true
		}
	}
	return false
}

func (s *memState) CreateUser(_ context.Context, u *User) error {
	if s.userConflict(*u) {
		return ErrUserExists
	}
	u.ID = s.id("users")
	stored := *u
	stored.PostCount = 0
	s.users[u.ID] = stored
	return nil
}

func (s *memState) UserByID(_ context.Context, id int64) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.PostCount = s.countPosts(id)
	return u, nil
}

func (s *memState) UserByLogin(ctx context.Context, login string) (User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, login) {
			return s.UserByID(ctx, u.ID)
		}
	}
	for _, u := range s.users {
		if u.Name == login {
			return s.UserByID(ctx, u.ID)
		}
	}
	return User{}, ErrNotFound
}

func (s *memState) UpdateUser(_ context.Context, u User) error {
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	if s.userConflict(u) {
		return ErrUserExists
	}
	u.PostCount = 0
	s.users[u.ID] = u
	return nil
}

func (s *memState) TouchUser(_ context.Context, id int64, at time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastSeen = at
	s.users[id] = u
	return nil
}

func (s *memState) countPosts(authorID int64) int {
	n := 0
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n
}

func (s *memState) countComments(postID int64) int {
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func (s *memState) CreatePost(_ context.Context, p *Post) error {
	if _, ok := s.users[p.AuthorID]; !ok {
		return ErrNotFound
	}
	p.ID = s.id("posts")
	p.Slug = ""
	p.CommentsCount = 0
	s.posts[p.ID] = *p
	return nil
}

func (s *memState) SetPostSlug(_ context.Context, id int64, slug string) error {
	p, ok := s.posts[id]
	if !ok {
		return ErrNotFound
	}
	for _, other := range s.posts {
		if other.ID != id && other.Slug == slug {
			return ErrSlugTaken
		}
	}
	p.Slug = slug
	s.posts[id] = p
	return nil
}

func (s *memState) PostByID(_ context.Context, id int64) (Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	p.CommentsCount = s.countComments(id)
	return p, nil
}

func (s *memState) PostBySlug(ctx context.Context, slug string) (Post, error) {
	id, found, _ := s.PostOwnerBySlug(ctx, slug)
	if !found {
		return Post{}, ErrNotFound
	}
	return s.PostByID(ctx, id)
}

func (s *memState) PostOwnerBySlug(_ context.Context, slug string) (int64, bool, error) {
	if slug == "" {
		return 0, false, nil
	}
	for _, p := range s.posts {
		if p.Slug == slug {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *memState) UpdatePost(_ context.Context, p Post) error {
	stored, ok := s.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = p.Title
	stored.Body = p.Body
	stored.BodyHTML = p.BodyHTML
	s.posts[p.ID] = stored
	return nil
}

func (s *memState) DeletePost(_ context.Context, id int64) error {
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *memState) ListPosts(_ context.Context, f PostFilter) ([]Post, int, error) {
	q := strings.ToLower(f.Query)
	var out []Post
	for _, p := range s.posts {
		if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Body), q) {
			continue
		}
		p.CommentsCount = s.countComments(p.ID)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(out, f.ListOptions), len(out), nil
}

func (s *memState) CreateComment(_ context.Context, c *Comment) error {
	if _, ok := s.posts[c.PostID]; !ok {
		return ErrNotFound
	}
	if c.AuthorID != 0 {
		if _, ok := s.users[c.AuthorID]; !ok {
			return ErrNotFound
		}
	}
	c.ID = s.id("comments")
	s.comments[c.ID] = *c
	return nil
}

func (s *memState) CommentByID(_ context.Context, id int64) (Comment, error) {
	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *memState) SetCommentDisabled(_ context.Context, id int64, disabled bool) error {
	c, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Disabled = disabled
	s.comments[id] = c
	return nil
}

func (s *memState) ListComments(_ context.Context, f CommentFilter) ([]Comment, int, error) {
	var out []Comment
	for _, c := range s.comments {
		if f.PostID != 0 && c.PostID != f.PostID {
			continue
		}
		if c.Disabled && !f.IncludeDisabled {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Comment) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if f.PostID == 0 {
			return -c
		}
		return c
	})
	return paginate(out, f.ListOptions), len(out), nil
}

func (s *memState) Widget(context.Context) (Widget, error) {
	if s.widget == nil {
		return Widget{}, ErrNotFound
	}
	return *s.widget, nil
}

func (s *memState) SaveWidget(_ context.Context, w Widget) error {
	s.widget = &w
	return nil
}

func paginate[T any](items []T, opts ListOptions) []T {
	if opts.Offset >= len(items) {
		return nil
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
