package event

// Any is the wildcard for either half of a Key.
const Any = "*"

// Key identifies a handler bucket: the target component channel and the
// channel (usually the event name) within it.
type Key struct {
	Target  string
	Channel string
}

// NewKey creates a key, mapping empty halves to Any.
func NewKey(target, channel string) Key {
	if target == "" {
		target = Any
	}
	if channel == "" {
		channel = Any
	}
	return Key{Target: target, Channel: channel}
}

// IsWildcard reports whether either half of the key is Any.
func (k Key) IsWildcard() bool {
	return k.Target == Any || k.Channel == Any
}

// String returns the key as "target:channel".
func (k Key) String() string {
	return k.Target + ":" + k.Channel
}

func (k Key) validate() {
	if k.Target == "" || k.Channel == "" {
		panic(ErrInvalidKey)
	}
}
