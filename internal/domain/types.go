package domain

type (
	BoardId   = string
	BoardName = string

	ThreadId      = int64
	ThreadSubject = string

	PostId      = int64
	PostContent = string
	AuthorName  = string

	// UserId identifies an anonymous poster for bans. It is a salted hash of the client IP.
	UserId = string
)

const (
	MaxThreadsPerBoard = 50
	MaxPostsPerThread  = 500

	DefaultAuthorName = "Anonymous"
	DefaultSubject    = "No subject"
)
