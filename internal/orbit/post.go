package orbit

import "time"

// PostType discriminates the post variants appended to a channel log.
type PostType string

const (
	PostText      PostType = "text"
	PostFile      PostType = "file"
	PostDirectory PostType = "directory"
)

// MaxTextLength is the maximum length of a text post in characters; longer
// input is truncated before appending.
const MaxTextLength = 2048

// PostMeta attributes a post to its author and carries variant metadata.
type PostMeta struct {
	From      UserProfile       `json:"from"`
	Type      PostType          `json:"type"`
	Timestamp int64             `json:"ts"`
	Size      int64             `json:"size,omitempty"`
	Name      string            `json:"name,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Post is the unit appended to a channel's log. For text posts Content is the
// message body; for file and directory posts it is a content address.
// Posts are immutable once constructed; ownership transfers to the log
// provider on append.
type Post struct {
	Content string   `json:"content"`
	Meta    PostMeta `json:"meta"`
}

// NewTextPost builds a text post stamped with the author and current time,
// truncating content to MaxTextLength characters.
func NewTextPost(from UserProfile, content string) Post {
	if r := []rune(content); len(r) > MaxTextLength {
		content = string(r[:MaxTextLength])
	}
	return Post{
		Content: content,
		Meta: PostMeta{
			From:      from,
			Type:      PostText,
			Timestamp: time.Now().UnixMilli(),
		},
	}
}

// NewFilePost builds a file or directory post referencing address.
func NewFilePost(from UserProfile, typ PostType, address, name string, size int64, extra map[string]string) Post {
	return Post{
		Content: address,
		Meta: PostMeta{
			From:      from,
			Type:      typ,
			Timestamp: time.Now().UnixMilli(),
			Size:      size,
			Name:      name,
			Extra:     extra,
		},
	}
}
