package templates

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/itchan-dev/schan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type common struct {
	Flash *domain.Flash
	Role  domain.Role
}

type page struct {
	Data   any
	Common common
}

func testFuncs() template.FuncMap {
	return Funcs(func(s string) template.HTML {
		return template.HTML("<p>" + template.HTMLEscapeString(s) + "</p>")
	})
}

func TestLoad(t *testing.T) {
	pages, err := Load(testFuncs())
	require.NoError(t, err)
	assert.Contains(t, pages, Index)
	assert.Contains(t, pages, Board)
	assert.Contains(t, pages, Thread)
	assert.NotContains(t, pages, BaseTemplate)
}

func TestRenderPages(t *testing.T) {
	pages := MustLoad(testFuncs())
	board := domain.Board{Id: "b", Name: "Random", Description: "Random discussion"}
	thread := domain.Thread{
		Id:       3,
		Subject:  "<hello>",
		OpPostId: 1,
		Posts: []domain.Post{
			{Id: 1, Name: "Anonymous", Content: "op text", Image: "/uploads/a.png", Timestamp: time.Unix(0, 0), AuthorId: "a1b2c3"},
			{Id: 2, Name: "anon", Content: "reply", Video: "/uploads/b.mp4", Timestamp: time.Unix(60, 0)},
		},
		PostCount: 2,
	}
	form := FormView{Action: "/board/b/thread", WithSubject: true, CaptchaCode: "AbC234", MaxFileSize: 18 << 20}

	t.Run("index with flash", func(t *testing.T) {
		var buf bytes.Buffer
		data := page{
			Data:   struct{ Boards []domain.Board }{[]domain.Board{board}},
			Common: common{Flash: &domain.Flash{Type: domain.FlashError, Message: "Board not found"}},
		}
		require.NoError(t, pages[Index].Execute(&buf, data))
		out := buf.String()
		assert.Contains(t, out, `href="/board/b"`)
		assert.Contains(t, out, `flash-error`)
		assert.Contains(t, out, "Board not found")
	})

	t.Run("board", func(t *testing.T) {
		var buf bytes.Buffer
		data := page{Data: struct {
			Board   domain.Board
			Threads []domain.Thread
			Form    FormView
		}{board, []domain.Thread{thread}, form}}
		require.NoError(t, pages[Board].Execute(&buf, data))
		out := buf.String()
		assert.Contains(t, out, "AbC234")
		assert.Contains(t, out, "Max 18 MB")
		assert.Contains(t, out, "&lt;hello&gt;")
		assert.Contains(t, out, "<p>op text</p>")
		assert.NotContains(t, out, "<p>reply</p>", "board page shows opening posts only")
	})

	t.Run("thread", func(t *testing.T) {
		var buf bytes.Buffer
		form.WithSubject = false
		data := page{Data: struct {
			Board  domain.Board
			Thread domain.Thread
			Form   FormView
		}{board, thread, form}}
		require.NoError(t, pages[Thread].Execute(&buf, data))
		out := buf.String()
		assert.Contains(t, out, "<p>reply</p>")
		assert.Contains(t, out, `<video src="/uploads/b.mp4"`)
		assert.Equal(t, 1, strings.Count(out, `class="post op"`))
		assert.NotContains(t, out, `name="subject"`)
		assert.NotContains(t, out, "a1b2c3", "poster ids are hidden from visitors")
		assert.NotContains(t, out, "/mod/ban-user/")
	})

	t.Run("thread for moderator", func(t *testing.T) {
		var buf bytes.Buffer
		data := page{
			Data: struct {
				Board  domain.Board
				Thread domain.Thread
				Form   FormView
			}{board, thread, form},
			Common: common{Role: domain.RoleMod},
		}
		require.NoError(t, pages[Thread].Execute(&buf, data))
		out := buf.String()
		assert.Contains(t, out, "ID: a1b2c3")
		assert.Contains(t, out, `action="/mod/ban-user/a1b2c3"`)
		assert.Contains(t, out, `action="/mod/delete-post/1"`)
		assert.Contains(t, out, `action="/mod/delete-post/2"`)
		assert.Equal(t, 1, strings.Count(out, "/mod/ban-user/"), "posts without an author id get no ban control")
	})

	t.Run("trimmed thread has no opening post", func(t *testing.T) {
		var buf bytes.Buffer
		trimmed := thread
		trimmed.OpPostId = 99
		data := page{Data: struct {
			Board  domain.Board
			Thread domain.Thread
			Form   FormView
		}{board, trimmed, form}}
		require.NoError(t, pages[Thread].Execute(&buf, data))
		assert.NotContains(t, buf.String(), `class="post op"`)
	})
}
