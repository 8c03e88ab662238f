package transcriber

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// MaxAudioBytes bounds a staged voice note. Telegram caps bot downloads at 20MB.
const MaxAudioBytes = 20 << 20

// Staged is an audio payload written to its own temporary directory.
// Everything derived from it (the normalized copy) lives in the same
// directory, so Release removes all of it.
type Staged struct {
	dir  string
	path string
	once sync.Once
	err  error
}

// Stage copies r into a fresh temp directory under name. The caller must
// call Release, typically with defer, whatever happens next.
func Stage(r io.Reader, name string) (*Staged, error) {
	if name == "" {
		name = "voice.ogg"
	}
	dir, err := os.MkdirTemp("", "botspese-voice-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	s := &Staged{dir: dir, path: filepath.Join(dir, filepath.Base(name))}

	f, err := os.Create(s.path)
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxAudioBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if n > MaxAudioBytes {
		s.Release()
		return nil, fmt.Errorf("audio payload exceeds %d bytes", MaxAudioBytes)
	}
	if n == 0 {
		s.Release()
		return nil, fmt.Errorf("empty audio payload")
	}
	return s, nil
}

// Path is the staged file.
func (s *Staged) Path() string { return s.path }

// Dir is the staging directory.
func (s *Staged) Dir() string { return s.dir }

// Release removes the staging directory. Safe to call more than once.
func (s *Staged) Release() error {
	s.once.Do(func() {
		s.err = os.RemoveAll(s.dir)
	})
	return s.err
}
