package tailer

import "os"

// osFS implements FileSystem on the operating system.
type osFS struct{}

// Open implements FileSystem.Open.
func (osFS) Open(name string) (File, error) {
	f, err := os.Open(name) // nolint:gosec // caller-selected tail target
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Stat implements FileSystem.Stat.
func (osFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
