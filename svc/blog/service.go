// Package blog is the blog domain: users, posts, comments and the side
// widget, plus the service that keeps rendered HTML, slugs, search and
// notifications consistent with every write.
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/quill/pkg/email"
	"github.com/dmitrymomot/quill/pkg/logger"
	"github.com/dmitrymomot/quill/pkg/slug"
	"github.com/dmitrymomot/quill/pkg/validator"
	"github.com/dmitrymomot/quill/svc/authz"
	"github.com/dmitrymomot/quill/svc/token"
)

const (
	DefaultPostsPerPage    = 20
	DefaultCommentsPerPage = 50

	// slugAttempts bounds retries when a concurrent writer claims the same
	// slug between allocation and commit.
	slugAttempts = 3
)

var userNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Stored timestamps are truncated to
// microseconds in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSearchIndexer enables full-text search. Without it Search falls back
// to substring matching in storage.
func WithSearchIndexer(idx SearchIndexer) Option {
	return func(s *Service) { s.search = idx }
}

// WithMailer enables comment notifications.
func WithMailer(m email.Sender) Option {
	return func(s *Service) { s.mailer = m }
}

func WithPolicy(p authz.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithPageSizes sets the page sizes of post and comment listings.
// Non-positive values keep the defaults.
func WithPageSizes(posts, comments int) Option {
	return func(s *Service) {
		if posts > 0 {
			s.postsPerPage = posts
		}
		if comments > 0 {
			s.commentsPerPage = comments
		}
	}
}

// WithSiteURL sets the absolute base URL used in notifications.
func WithSiteURL(u string) Option {
	return func(s *Service) { s.siteURL = strings.TrimRight(u, "/") }
}

// WithHashCost sets the bcrypt cost for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// Service implements the blog use cases on top of a Storage.
type Service struct {
	store           Storage
	search          SearchIndexer
	mailer          email.Sender
	policy          authz.Policy
	log             *slog.Logger
	now             func() time.Time
	postsPerPage    int
	commentsPerPage int
	siteURL         string
	hashCost        int
}

// New creates a service. The default policy has no admin.
func New(store Storage, opts ...Option) *Service {
	s := &Service{
		store:           store,
		policy:          authz.NewEmailPolicy(""),
		log:             logger.Discard(),
		now:             time.Now,
		postsPerPage:    DefaultPostsPerPage,
		commentsPerPage: DefaultCommentsPerPage,
		hashCost:        bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("blog"))
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) PostsPerPage() int    { return s.postsPerPage }
func (s *Service) CommentsPerPage() int { return s.commentsPerPage }

// Subject returns the authorization subject for u.
func Subject(u User) authz.Subject {
	return authz.Subject{ID: u.ID, Email: u.Email}
}

// IsAdmin reports whether u is the site admin.
func (s *Service) IsAdmin(u User) bool {
	return s.policy.IsAdmin(Subject(u))
}

// CanEdit reports whether u may change or delete p.
func (s *Service) CanEdit(u User, p Post) bool {
	return s.policy.CanEditPost(Subject(u), p.AuthorID)
}

// Users

// ProfilePayload is the editable part of a user profile.
type ProfilePayload struct {
	Email    string `json:"email" form:"email"`
	Name     string `json:"name" form:"name"`
	Location string `json:"location" form:"location"`
	AboutMe  string `json:"about_me" form:"about_me"`
}

func (in ProfilePayload) validate() error {
	if err := validator.Apply(
		validator.Required("email", in.Email),
		validator.MaxLen("email", in.Email, MaxFieldLength),
		validator.ValidEmail("email", in.Email),
		validator.Required("name", in.Name),
		validator.MaxLen("name", in.Name, MaxFieldLength),
		validator.Matches("name", in.Name, userNamePattern,
			"Usernames must have only letters, numbers, dots or underscores"),
		validator.MaxLen("location", in.Location, MaxFieldLength),
	); err != nil {
		return invalid("Profile is not valid", err)
	}
	return nil
}

func (in ProfilePayload) normalized() ProfilePayload {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	return in
}

// CreateUser registers a user with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, emailAddr, name, password string) (User, error) {
	in := ProfilePayload{Email: emailAddr, Name: name}.normalized()
	if err := in.validate(); err != nil {
		return User{}, err
	}
	if password == "" {
		return User{}, &ValidationError{Message: "Password is required"}
	}

	hash, err := token.HashPassword(password, s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("blog: hash password: %w", err)
	}

	now := s.timestamp()
	u := User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		MemberSince:  now,
		LastSeen:     now,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return User{}, userConflict(err)
	}

	s.log.InfoContext(ctx, "user created", logger.UserID(u.ID))
	return u, nil
}

func userConflict(err error) error {
	if errors.Is(err, ErrUserExists) {
		return errors.Join(&ValidationError{Message: "Email or username already registered"}, err)
	}
	return err
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.store.UserByID(ctx, id)
}

// UserByLogin finds a user by e-mail (case-insensitive) or exact name.
func (s *Service) UserByLogin(ctx context.Context, login string) (User, error) {
	return s.store.UserByLogin(ctx, strings.TrimSpace(login))
}

// LookupAccount adapts the user store for token.NewBcryptAuthenticator.
func (s *Service) LookupAccount(ctx context.Context, login string) (token.Account, bool, error) {
	u, err := s.UserByLogin(ctx, login)
	switch {
	case errors.Is(err, ErrNotFound):
		return token.Account{}, false, nil
	case err != nil:
		return token.Account{}, false, err
	}
	return token.Account{ID: u.ID, Name: u.Name, PasswordHash: u.PasswordHash}, true, nil
}

// Ping records that the user was just seen.
func (s *Service) Ping(ctx context.Context, userID int64) error {
	return s.store.TouchUser(ctx, userID, s.timestamp())
}

// UpdateProfile changes a user's profile. Users edit their own profile,
// the admin edits anyone's.
func (s *Service) UpdateProfile(ctx context.Context, actor User, id int64, in ProfilePayload) (User, error) {
	if actor.ID != id && !s.IsAdmin(actor) {
		return User{}, ErrForbidden
	}
	in = in.normalized()
	if err := in.validate(); err != nil {
		return User{}, err
	}

	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Email = in.Email
	u.Name = in.Name
	u.Location = in.Location
	u.SetAboutMe(in.AboutMe)

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, userConflict(err)
	}
	return u, nil
}

// SetPhoto stores the URL of an uploaded profile photo.
func (s *Service) SetPhoto(ctx context.Context, actor User, id int64, url string) (User, error) {
	if actor.ID != id && !s.IsAdmin(actor) {
		return User{}, ErrForbidden
	}
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.PhotoURL = url
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Posts

// withSlugRetry runs fn in a transaction, retrying when the slug written
// by fn was claimed concurrently.
func (s *Service) withSlugRetry(ctx context.Context, fn func(tx Storage) error) error {
	var err error
	for range slugAttempts {
		if err = s.store.InTx(ctx, fn); !errors.Is(err, ErrSlugTaken) {
			return err
		}
		s.log.DebugContext(ctx, "slug taken concurrently, retrying")
	}
	return err
}

func assignSlug(ctx context.Context, tx Storage, p *Post) error {
	sl, err := slug.Allocate(ctx, p.Title, p.ID, tx.PostOwnerBySlug)
	if err != nil {
		return err
	}
	if sl == p.Slug {
		return nil
	}
	if err := tx.SetPostSlug(ctx, p.ID, sl); err != nil {
		return err
	}
	p.Slug = sl
	return nil
}

// CreatePost publishes a post by author. The post is inserted first and
// gets its slug from its id in the same transaction.
func (s *Service) CreatePost(ctx context.Context, author User, in PostPayload) (Post, error) {
	if author.ID == 0 {
		return Post{}, ErrForbidden
	}
	draft, err := PostFromPayload(in)
	if err != nil {
		return Post{}, err
	}
	draft.AuthorID = author.ID
	draft.CreatedAt = s.timestamp()

	var p Post
	err = s.withSlugRetry(ctx, func(tx Storage) error {
		p = draft
		if err := tx.CreatePost(ctx, &p); err != nil {
			return err
		}
		return assignSlug(ctx, tx, &p)
	})
	if err != nil {
		return Post{}, err
	}

	s.log.InfoContext(ctx, "post created", logger.PostID(p.ID), logger.UserID(author.ID), logger.Slug(p.Slug))
	s.index(ctx, p)
	return p, nil
}

// UpdatePost changes title and body. Empty fields keep their current
// value. The slug is re-derived only when the title changes.
func (s *Service) UpdatePost(ctx context.Context, actor User, id int64, in PostPayload) (Post, error) {
	var p Post
	err := s.withSlugRetry(ctx, func(tx Storage) error {
		cur, err := tx.PostByID(ctx, id)
		if err != nil {
			return err
		}
		if !s.CanEdit(actor, cur) {
			return ErrForbidden
		}

		if strings.TrimSpace(in.Title) == "" {
			in.Title = cur.Title
		}
		if strings.TrimSpace(in.Body) == "" {
			in.Body = cur.Body
		}
		next, err := PostFromPayload(in)
		if err != nil {
			return err
		}

		p = cur
		p.Body, p.BodyHTML = next.Body, next.BodyHTML
		if next.Title != cur.Title {
			p.Title = next.Title
			if err := assignSlug(ctx, tx, &p); err != nil {
				return err
			}
		}
		return tx.UpdatePost(ctx, p)
	})
	if err != nil {
		return Post{}, err
	}

	s.index(ctx, p)
	return p, nil
}

// DeletePost removes a post and its comments.
func (s *Service) DeletePost(ctx context.Context, actor User, id int64) error {
	p, err := s.store.PostByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.CanEdit(actor, p) {
		return ErrForbidden
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "post deleted", logger.PostID(id), logger.UserID(actor.ID))
	if s.search != nil {
		if err := s.search.Remove(ctx, id); err != nil {
			s.log.ErrorContext(ctx, "search index removal failed", logger.PostID(id), logger.Error(err))
		}
	}
	return nil
}

func (s *Service) index(ctx context.Context, p Post) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(ctx, p); err != nil {
		s.log.ErrorContext(ctx, "search indexing failed", logger.PostID(p.ID), logger.Error(err))
	}
}

func (s *Service) GetPost(ctx context.Context, id int64) (Post, error) {
	return s.store.PostByID(ctx, id)
}

func (s *Service) GetPostBySlug(ctx context.Context, sl string) (Post, error) {
	return s.store.PostBySlug(ctx, sl)
}

// ListPosts returns a page of posts, newest first.
func (s *Service) ListPosts(ctx context.Context, page int) (Page[Post], error) {
	return s.listPosts(ctx, PostFilter{}, page, s.postsPerPage)
}

// ListUserPosts returns all posts of a user, newest first.
func (s *Service) ListUserPosts(ctx context.Context, userID int64) ([]Post, error) {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, _, err := s.store.ListPosts(ctx, PostFilter{AuthorID: userID})
	return posts, err
}

func (s *Service) listPosts(ctx context.Context, f PostFilter, page, size int) (Page[Post], error) {
	number, opts := pageOptions(page, size)
	f.ListOptions = opts
	items, total, err := s.store.ListPosts(ctx, f)
	if err != nil {
		return Page[Post]{}, err
	}
	return Page[Post]{Items: items, Number: number, Size: size, Total: total}, nil
}

// Search finds posts matching query. It uses the search index when one is
// configured and storage substring matching otherwise.
func (s *Service) Search(ctx context.Context, query string, page int) (Page[Post], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListPosts(ctx, page)
	}
	if s.search == nil {
		return s.listPosts(ctx, PostFilter{Query: query}, page, s.postsPerPage)
	}

	number, opts := pageOptions(page, s.postsPerPage)
	ids, total, err := s.search.Search(ctx, query, opts.Offset, opts.Limit)
	if err != nil {
		return Page[Post]{}, err
	}

	items := make([]Post, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.PostByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Deleted post still in the index.
			total--
			if err := s.search.Remove(ctx, id); err != nil {
				s.log.WarnContext(ctx, "failed to remove stale search document", logger.PostID(id), logger.Error(err))
			}
			continue
		}
		if err != nil {
			return Page[Post]{}, err
		}
		items = append(items, p)
	}
	return Page[Post]{Items: items, Number: number, Size: s.postsPerPage, Total: max(total, len(items))}, nil
}

// Comments

// AddComment attaches a comment to a post and notifies the post author.
// author is optional; the zero User leaves the comment anonymous. A known
// author always comments under their own e-mail.
func (s *Service) AddComment(ctx context.Context, postID int64, author User, in CommentPayload) (Comment, error) {
	if author.ID != 0 {
		in.AuthorEmail = author.Email
	}
	c, err := CommentFromPayload(in)
	if err != nil {
		return Comment{}, err
	}

	post, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return Comment{}, err
	}

	c.PostID = post.ID
	c.AuthorID = author.ID
	c.CreatedAt = s.timestamp()
	if err := s.store.CreateComment(ctx, &c); err != nil {
		return Comment{}, err
	}

	s.log.InfoContext(ctx, "comment added", logger.PostID(post.ID), logger.CommentID(c.ID))
	s.notifyAuthor(ctx, post, c)
	return c, nil
}

func (s *Service) GetComment(ctx context.Context, id int64) (Comment, error) {
	return s.store.CommentByID(ctx, id)
}

// ListComments returns a page of visible comments, newest first.
func (s *Service) ListComments(ctx context.Context, page int) (Page[Comment], error) {
	return s.listComments(ctx, CommentFilter{}, page)
}

// ListAllComments includes disabled comments, for moderation.
func (s *Service) ListAllComments(ctx context.Context, page int) (Page[Comment], error) {
	return s.listComments(ctx, CommentFilter{IncludeDisabled: true}, page)
}

// ListPostComments returns the visible comments of a post, oldest first.
func (s *Service) ListPostComments(ctx context.Context, postID int64) ([]Comment, error) {
	if _, err := s.store.PostByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, _, err := s.store.ListComments(ctx, CommentFilter{PostID: postID})
	return comments, err
}

func (s *Service) listComments(ctx context.Context, f CommentFilter, page int) (Page[Comment], error) {
	number, opts := pageOptions(page, s.commentsPerPage)
	f.ListOptions = opts
	items, total, err := s.store.ListComments(ctx, f)
	if err != nil {
		return Page[Comment]{}, err
	}
	return Page[Comment]{Items: items, Number: number, Size: s.commentsPerPage, Total: total}, nil
}

// SetCommentDisabled hides or restores a comment. Admin only.
func (s *Service) SetCommentDisabled(ctx context.Context, actor User, id int64, disabled bool) error {
	if !s.IsAdmin(actor) {
		return ErrForbidden
	}
	if err := s.store.SetCommentDisabled(ctx, id, disabled); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "comment moderated", logger.CommentID(id), slog.Bool("disabled", disabled))
	return nil
}

// Widget

// GetWidget returns the side widget. A site without one gets the zero
// Widget.
func (s *Service) GetWidget(ctx context.Context) (Widget, error) {
	w, err := s.store.Widget(ctx)
	if errors.Is(err, ErrNotFound) {
		return Widget{}, nil
	}
	return w, err
}

// WidgetPayload is the editable part of the widget.
type WidgetPayload struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// UpdateWidget replaces the side widget. Admin only.
func (s *Service) UpdateWidget(ctx context.Context, actor User, in WidgetPayload) (Widget, error) {
	if !s.IsAdmin(actor) {
		return Widget{}, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if err := validator.Apply(
		validator.Required("title", title),
		validator.MaxLen("title", title, MaxFieldLength),
	); err != nil {
		return Widget{}, invalid("Widget does not have a valid title", err)
	}

	w := Widget{Title: title, LastModified: s.timestamp()}
	w.SetBody(in.Body)
	if err := s.store.SaveWidget(ctx, w); err != nil {
		return Widget{}, err
	}
	return w, nil
}
