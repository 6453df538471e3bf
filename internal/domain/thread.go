package domain

import (
	"time"
)

type Post struct {
	Id        PostId      `json:"id"`
	Name      AuthorName  `json:"name"`
	Content   PostContent `json:"content"`
	Image     string      `json:"image,omitempty"`
	Video     string      `json:"video,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	AuthorId  UserId      `json:"authorId,omitempty"`
}

// MediaPaths lists the public paths of the files attached to the post.
func (p *Post) MediaPaths() []string {
	var paths []string
	if p.Image != "" {
		paths = append(paths, p.Image)
	}
	if p.Video != "" {
		paths = append(paths, p.Video)
	}
	return paths
}

type Thread struct {
	Id           ThreadId      `json:"id"`
	Subject      ThreadSubject `json:"subject"`
	OpPostId     PostId        `json:"opPostId"`
	Posts        []Post        `json:"posts"`
	PostCount    int           `json:"postCount"`
	LastPostTime time.Time     `json:"lastPostTime"`
}

// OP returns the opening post, nil once it was trimmed from the thread.
func (t Thread) OP() *Post {
	for i := range t.Posts {
		if t.Posts[i].Id == t.OpPostId {
			return &t.Posts[i]
		}
	}
	return nil
}

// IsOP reports whether id is the thread's opening post.
func (t Thread) IsOP(id PostId) bool {
	return id == t.OpPostId
}

// Replies returns every post except the opening one.
func (t Thread) Replies() []Post {
	var replies []Post
	for _, p := range t.Posts {
		if p.Id != t.OpPostId {
			replies = append(replies, p)
		}
	}
	return replies
}

// to iterate thru layers: handler -> service -> storage
type PostCreationData struct {
	Name     AuthorName
	Content  PostContent
	Image    *PendingFile
	Video    *PendingFile
	AuthorId UserId
}

// HasPayload reports whether the post carries text or media.
func (d *PostCreationData) HasPayload() bool {
	return d.Content != "" || d.Image != nil || d.Video != nil
}

type ThreadCreationData struct {
	Subject ThreadSubject
	OpPost  PostCreationData
}
