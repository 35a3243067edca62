package orbit

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
)

// SendText appends a text post to the named channel and returns the entry ID.
// Input longer than MaxTextLength characters is truncated.
func (o *Orbit) SendText(ctx context.Context, channel, text string) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("%w: channel name must not be empty", ErrInvalidArgument)
	}
	if text == "" {
		return "", fmt.Errorf("%w: message must not be empty", ErrInvalidArgument)
	}
	from, err := o.sessionProfile()
	if err != nil {
		return "", err
	}
	return o.append(ctx, channel, NewTextPost(*from, text))
}

// AddContent addresses the source's content on the network provider, builds a
// file or directory post and appends it to the named channel exactly as
// SendText does. extra is merged into the post's meta.
//
// Whether the addition is a file or a directory is decided by comparing the
// terminal path segment of the last entry the provider returned against the
// source's base name: a mismatch classifies the addition as a directory. The
// comparison can misclassify a single file whose basename differs from the
// provider's returned segment; that behavior is kept for compatibility.
func (o *Orbit) AddContent(ctx context.Context, channel string, source ContentSource, extra map[string]string) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("%w: channel name must not be empty", ErrInvalidArgument)
	}
	if !source.valid() {
		return "", fmt.Errorf("%w: content source requires a filename or directory", ErrInvalidArgument)
	}
	from, err := o.sessionProfile()
	if err != nil {
		return "", err
	}

	var (
		address string
		typ     PostType
		name    string
	)
	switch source.kind {
	case sourceBuffer:
		address, err = o.network.AddContent(ctx, source.buffer)
		if err != nil {
			return "", providerErr("add content", err)
		}
		typ = PostFile
		name = filepath.Base(source.filename)

	default:
		entries, err := o.network.AddPath(ctx, source.path())
		if err != nil {
			return "", providerErr("add path", err)
		}
		if len(entries) == 0 {
			return "", providerErr("add path", fmt.Errorf("no entries returned for %s", source.path()))
		}
		// The last entry is the root of the addition.
		last := entries[len(entries)-1]
		address = last.Address
		name = filepath.Base(source.path())
		if path.Base(last.Path) == name {
			typ = PostFile
		} else {
			typ = PostDirectory
		}
	}

	return o.append(ctx, channel, NewFilePost(*from, typ, address, name, source.size, extra))
}

// GetContent is a pass-through read of previously added content.
func (o *Orbit) GetContent(ctx context.Context, address string) (io.ReadCloser, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address must not be empty", ErrInvalidArgument)
	}
	rc, err := o.network.GetContent(ctx, address)
	if err != nil {
		return nil, providerErr("get content", err)
	}
	return rc, nil
}

// ListDirectory is a pass-through listing of a content-addressed directory.
func (o *Orbit) ListDirectory(ctx context.Context, address string) ([]DirEntry, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address must not be empty", ErrInvalidArgument)
	}
	entries, err := o.network.ListDirectory(ctx, address)
	if err != nil {
		return nil, providerErr("list directory", err)
	}
	return entries, nil
}

func (o *Orbit) sessionProfile() (*UserProfile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.profile == nil {
		return nil, ErrNotConnected
	}
	p := *o.profile
	return &p, nil
}

func (o *Orbit) append(ctx context.Context, channel string, post Post) (string, error) {
	o.mu.Lock()
	ch, ok := o.channels[channel]
	o.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrChannelNotJoined, channel)
	}
	entry, err := ch.feed.Append(ctx, post)
	if err != nil {
		return "", providerErr("append", err)
	}
	return entry, nil
}
