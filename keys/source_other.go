//go:build !linux

package keys

// NewSource returns a Feed; keystrokes typed into the clack terminal are sent to it.
func NewSource() Source {
	return NewFeed()
}

func Diagnose() (string, error) {
	return "no global key reader on this platform, keys typed into the clack terminal are used", nil
}
