package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed buffer is read.
var ErrDestroyed = errors.New("secure buffer has been destroyed")

// SecureBuffer holds a secret payload sealed in a memguard.Enclave.
// The plaintext only exists while a caller holds an opened LockedBuffer
// or a string returned by Reveal.
//
// memguard cannot seal zero-length data, so empty payloads are tracked
// with a flag instead of an enclave.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// NewSecureBuffer seals data into an enclave. memguard wipes data after
// copying it, so callers must not reuse the slice.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return &SecureBuffer{empty: true}, nil
	}
	enclave := memguard.NewEnclave(data)
	if enclave == nil {
		return nil, errors.New("failed to seal secret payload")
	}
	return &SecureBuffer{enclave: enclave}, nil
}

// SealString seals a copy of s.
func SealString(s string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(s))
}

// Open decrypts the payload into a locked buffer. The caller must Destroy
// the returned buffer when done.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	use(locked.Bytes())
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.empty {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// Reveal returns the payload as a string. The locked plaintext is wiped
// before returning; the string itself is ordinary Go memory.
func (s *SecureBuffer) Reveal() (string, error) {
	s.mu.RLock()
	empty, destroyed := s.empty, s.destroyed
	s.mu.RUnlock()

	if destroyed {
		return "", ErrDestroyed
	}
	if empty {
		return "", nil
	}

	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Destroy drops the enclave. It is safe to call more than once. Enclave
// memory is released by memguard.Purge at process exit.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}
