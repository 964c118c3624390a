package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/UkralStul/forum-service/internal/domain"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/comment.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/comment.txt.tmpl"))
	stripPolicy   = bluemonday.StrictPolicy()
)

// Message - готовое к отправке письмо.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	CommenterName string
	TopicTitle    string
	CommentBody   string
	IsReply       bool
	Year          int
}

// Subject формирует тему письма.
func Subject(kind Kind, commenterName, topicTitle string) string {
	if kind == KindCommentReply {
		return fmt.Sprintf("%s replied to your comment on \"%s\"", commenterName, topicTitle)
	}
	return fmt.Sprintf("%s commented on your topic \"%s\"", commenterName, topicTitle)
}

// Render собирает письмо для одного получателя.
func Render(evt domain.CommentCreatedEvent, kind Kind) (Message, error) {
	data := templateData{
		CommenterName: evt.CommenterName,
		TopicTitle:    evt.TopicTitle,
		CommentBody:   evt.CommentBody,
		IsReply:       kind == KindCommentReply,
		Year:          time.Now().Year(),
	}

	var htmlBuf bytes.Buffer
	if err := htmlTemplates.Execute(&htmlBuf, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}

	// В текстовой версии разметку из комментария убираем целиком
	data.CommentBody = strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(evt.CommentBody)))
	var textBuf bytes.Buffer
	if err := textTemplates.Execute(&textBuf, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}

	return Message{
		Subject: Subject(kind, evt.CommenterName, evt.TopicTitle),
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}
