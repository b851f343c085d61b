package blog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/quill/pkg/email"
	"github.com/dmitrymomot/quill/pkg/email/templates"
	"github.com/dmitrymomot/quill/pkg/logger"
)

func commentNotification(post Post, c Comment, postURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<p>%s commented on <a href="%s">%s</a>:</p><blockquote>%s</blockquote>`,
			templ.EscapeString(c.AuthorEmail),
			templ.EscapeString(postURL),
			templ.EscapeString(post.Title),
			templ.EscapeString(c.Body),
		)
		return err
	})
}

// notifyAuthor e-mails the post author about a new comment. Failures are
// logged only.
func (s *Service) notifyAuthor(ctx context.Context, post Post, c Comment) {
	if s.mailer == nil {
		return
	}

	author, err := s.store.UserByID(ctx, post.AuthorID)
	if err != nil {
		s.log.WarnContext(ctx, "comment notification skipped", logger.PostID(post.ID), logger.Error(err))
		return
	}
	if strings.EqualFold(author.Email, c.AuthorEmail) {
		return
	}

	body, err := templates.Render(ctx, commentNotification(post, c, s.siteURL+"/post/"+fmt.Sprint(post.ID)))
	if err == nil {
		err = s.mailer.SendEmail(ctx, email.SendEmailParams{
			SendTo:   author.Email,
			Subject:  "New comment on " + post.Title,
			BodyHTML: body,
			Tag:      "comment",
		})
	}
	if err != nil {
		s.log.ErrorContext(ctx, "comment notification failed",
			logger.PostID(post.ID), logger.CommentID(c.ID), logger.Error(err))
	}
}
