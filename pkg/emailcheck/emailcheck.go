// Package emailcheck screens invitee e-mail addresses against a bloom
// filter of disposable-mail domains. The filter file is produced offline by
// the blocklist-ingest command and loaded once at startup.
package emailcheck

import (
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// Blocklist answers whether an address belongs to a blocked domain.
// A nil Blocklist blocks nothing, so callers can run without a filter file.
type Blocklist struct {
	filter *bloom.BloomFilter
}

// Load reads a bloom filter previously written by blocklist-ingest.
func Load(path string) (*Blocklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open blocklist")
	}
	defer f.Close()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrap(err, "read bloom filter")
	}
	return &Blocklist{filter: filter}, nil
}

// New wraps an in-memory filter; used by tests and the ingest command.
func New(filter *bloom.BloomFilter) *Blocklist {
	return &Blocklist{filter: filter}
}

// Blocked reports whether the address's domain is on the blocklist.
// Bloom membership is probabilistic: a small false-positive rate means a
// legitimate domain may occasionally be rejected, but blocked domains are
// never let through.
func (b *Blocklist) Blocked(email string) bool {
	if b == nil || b.filter == nil {
		return false
	}
	domain := Domain(email)
	if domain == "" {
		return false
	}
	return b.filter.TestString(domain)
}

// Domain extracts the lower-cased domain part of an address, or "" if the
// address has no @.
func Domain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
