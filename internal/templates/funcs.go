package templates

import (
	"html/template"
	"time"

	"github.com/itchan-dev/schan/internal/domain"
)

// PostView is what the "post" partial renders. CanModerate adds the poster id
// together with the delete and ban controls.
type PostView struct {
	Post        domain.Post
	IsOp        bool
	CanModerate bool
}

// FormView is what the "post-form" partial renders.
type FormView struct {
	Action      string
	WithSubject bool
	CaptchaCode string
	MaxFileSize int64
}

// Funcs returns the template helpers. formatPost turns raw post content into safe HTML.
func Funcs(formatPost func(string) template.HTML) template.FuncMap {
	return template.FuncMap{
		"formatPost": formatPost,
		"formatTime": formatTime,
		"bytesToMB":  bytesToMB,
		"postView":   postView,
	}
}

func postView(p any, isOp bool, role domain.Role) PostView {
	view := PostView{IsOp: isOp, CanModerate: role.Satisfies(domain.RoleMod)}
	switch v := p.(type) {
	case *domain.Post:
		if v != nil {
			view.Post = *v
		}
	case domain.Post:
		view.Post = v
	}
	return view
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func bytesToMB(bytes int64) int64 {
	return bytes / (1024 * 1024)
}
