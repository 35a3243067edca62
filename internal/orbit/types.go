package orbit

// UserProfile is the local user profile carried on every authored post.
// Built at connect time and immutable for the session.
type UserProfile struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	// Image is the content address of an optional avatar blob.
	Image string `json:"image,omitempty"`
}

// Identity is the credential obtained from the log provider at connect time.
type Identity struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
}

// AccessPolicy controls who may append to a channel's log. The "*" writer
// entry grants open write access.
type AccessPolicy struct {
	Write []string `json:"write"`
}

// DefaultAccessPolicy returns the open-write policy used when a join supplies
// no options.
func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{Write: []string{"*"}}
}

// AllowsWriter reports whether id may append under this policy.
func (p AccessPolicy) AllowsWriter(id string) bool {
	for _, w := range p.Write {
		if w == "*" || w == id {
			return true
		}
	}
	return false
}

// JoinOptions carries optional per-channel settings, merged over the default
// access policy on join.
type JoinOptions struct {
	Policy *AccessPolicy
}

// Channel is a live joined channel: a name bound to an open feed handle.
// At most one Channel exists per name at any time.
type Channel struct {
	Name   string
	Policy AccessPolicy

	feed FeedHandle
}

// Feed returns the channel's open feed handle.
func (c *Channel) Feed() FeedHandle {
	return c.feed
}
