package orbit

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func connectAndJoin(t *testing.T, provider *fakeLogProvider, network *fakeNetwork) *Orbit {
	t.Helper()
	o := newTestOrbit(t, provider, network)
	if err := o.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if _, err := o.Join(context.Background(), "files", nil); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	return o
}

func TestSendTextValidation(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	if _, err := o.SendText(context.Background(), "", "hi"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty channel: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := o.SendText(context.Background(), "files", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty text: expected ErrInvalidArgument, got %v", err)
	}
	if got := len(provider.feeds["files"].appended()); got != 0 {
		t.Errorf("validation failures must not append entries, got %d", got)
	}

	if _, err := o.SendText(context.Background(), "not-joined", "hi"); !errors.Is(err, ErrChannelNotJoined) {
		t.Errorf("expected ErrChannelNotJoined, got %v", err)
	}
}

func TestSendTextNotConnected(t *testing.T) {
	o := newTestOrbit(t, newFakeLogProvider(), &fakeNetwork{})
	if _, err := o.SendText(context.Background(), "files", "hi"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendTextTruncates(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	long := strings.Repeat("x", MaxTextLength+500)
	if _, err := o.SendText(context.Background(), "files", long); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}

	posts := provider.feeds["files"].appended()
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if got := len([]rune(posts[0].Content)); got != MaxTextLength {
		t.Errorf("content length = %d, want %d", got, MaxTextLength)
	}
}

func TestSendTextOrdering(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := o.SendText(context.Background(), "files", msg); err != nil {
			t.Fatalf("SendText failed: %v", err)
		}
	}
	posts := provider.feeds["files"].appended()
	want := []string{"one", "two", "three"}
	for i, p := range posts {
		if p.Content != want[i] {
			t.Errorf("post %d = %q, want %q", i, p.Content, want[i])
		}
	}
}

func TestAddContentFromBuffer(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	src, err := FromBuffer("notes.txt", []byte("hello world"))
	if err != nil {
		t.Fatalf("FromBuffer failed: %v", err)
	}
	if _, err := o.AddContent(context.Background(), "files", src.WithSize(11), nil); err != nil {
		t.Fatalf("AddContent failed: %v", err)
	}

	posts := provider.feeds["files"].appended()
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	post := posts[0]
	if post.Meta.Type != PostFile {
		t.Errorf("buffer source must always be a file, got %q", post.Meta.Type)
	}
	if post.Meta.Name != "notes.txt" {
		t.Errorf("meta.name = %q, want notes.txt", post.Meta.Name)
	}
	if post.Meta.Size != 11 {
		t.Errorf("meta.size = %d, want 11", post.Meta.Size)
	}
	if post.Content == "" {
		t.Error("expected a content address")
	}
}

func TestAddContentClassifiesFile(t *testing.T) {
	provider := newFakeLogProvider()
	network := &fakeNetwork{
		pathEntries: []PathEntry{{Path: "a.txt", Address: "Qm-a"}},
	}
	o := connectAndJoin(t, provider, network)

	src, err := FromFilePath("/data/a.txt")
	if err != nil {
		t.Fatalf("FromFilePath failed: %v", err)
	}
	if _, err := o.AddContent(context.Background(), "files", src, nil); err != nil {
		t.Fatalf("AddContent failed: %v", err)
	}

	post := provider.feeds["files"].appended()[0]
	if post.Meta.Type != PostFile {
		t.Errorf("matching trailing segment must classify as file, got %q", post.Meta.Type)
	}
	if post.Content != "Qm-a" {
		t.Errorf("content = %q, want Qm-a", post.Content)
	}
}

func TestAddContentReclassifiesOnMismatch(t *testing.T) {
	provider := newFakeLogProvider()
	network := &fakeNetwork{
		pathEntries: []PathEntry{{Path: "wrapped/a.txt", Address: "Qm-root"}},
	}
	o := connectAndJoin(t, provider, network)

	src, err := FromFilePath("/data/a.txt")
	if err != nil {
		t.Fatalf("FromFilePath failed: %v", err)
	}
	if _, err := o.AddContent(context.Background(), "files", src, nil); err != nil {
		t.Fatalf("AddContent failed: %v", err)
	}

	post := provider.feeds["files"].appended()[0]
	if post.Meta.Type != PostDirectory {
		t.Errorf("mismatched trailing segment must classify as directory, got %q", post.Meta.Type)
	}
}

func TestAddContentDirectory(t *testing.T) {
	provider := newFakeLogProvider()
	network := &fakeNetwork{
		pathEntries: []PathEntry{
			{Path: "photos/a.jpg", Address: "Qm-a"},
			{Path: "photos/b.jpg", Address: "Qm-b"},
			{Path: "photos/thumbs", Address: "Qm-t"},
		},
	}
	o := connectAndJoin(t, provider, network)

	src, err := FromDirectoryPath("/data/photos")
	if err != nil {
		t.Fatalf("FromDirectoryPath failed: %v", err)
	}
	if _, err := o.AddContent(context.Background(), "files", src, map[string]string{"album": "summer"}); err != nil {
		t.Fatalf("AddContent failed: %v", err)
	}

	post := provider.feeds["files"].appended()[0]
	if post.Meta.Type != PostDirectory {
		t.Errorf("meta.type = %q, want directory", post.Meta.Type)
	}
	// The last returned entry is the root of the addition.
	if post.Content != "Qm-t" {
		t.Errorf("content = %q, want Qm-t", post.Content)
	}
	if post.Meta.Name != "photos" {
		t.Errorf("meta.name = %q, want photos", post.Meta.Name)
	}
	if post.Meta.Extra["album"] != "summer" {
		t.Errorf("caller meta must be carried, got %+v", post.Meta.Extra)
	}
}

func TestAddContentInvalidSource(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	if _, err := o.AddContent(context.Background(), "files", ContentSource{}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero source: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := o.AddContent(context.Background(), "", ContentSource{}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty channel: expected ErrInvalidArgument, got %v", err)
	}
}

func TestAddContentProviderFailure(t *testing.T) {
	provider := newFakeLogProvider()
	network := &fakeNetwork{pathErr: errors.New("path unreachable")}
	o := connectAndJoin(t, provider, network)

	src, err := FromFilePath("/data/a.txt")
	if err != nil {
		t.Fatalf("FromFilePath failed: %v", err)
	}
	_, err = o.AddContent(context.Background(), "files", src, nil)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("expected ProviderError, got %v", err)
	}
	if got := len(provider.feeds["files"].appended()); got != 0 {
		t.Errorf("failed addition must not append, got %d posts", got)
	}
}

func TestGetContentPassThrough(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	rc, err := o.GetContent(context.Background(), "Qm-x")
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "content of Qm-x" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := o.GetContent(context.Background(), ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty address: expected ErrInvalidArgument, got %v", err)
	}
}

func TestListDirectoryPassThrough(t *testing.T) {
	provider := newFakeLogProvider()
	o := connectAndJoin(t, provider, &fakeNetwork{})

	entries, err := o.ListDirectory(context.Background(), "Qm-dir")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "a.txt" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestSourceConstructors(t *testing.T) {
	if _, err := FromBuffer("", []byte("x")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("FromBuffer without filename must fail, got %v", err)
	}
	if _, err := FromBuffer("a.txt", nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("FromBuffer without content must fail, got %v", err)
	}
	if _, err := FromFilePath(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("FromFilePath without path must fail, got %v", err)
	}
	if _, err := FromDirectoryPath(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("FromDirectoryPath without path must fail, got %v", err)
	}
}
