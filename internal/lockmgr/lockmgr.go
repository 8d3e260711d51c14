// Package lockmgr serializes balance-affecting operations per account.
//
// Every read-modify-write cycle of the transaction engine runs between
// Acquire and Release for the accounts it touches. A Lease is the proof of
// acquisition; passing it back into Acquire makes the acquisition reentrant
// for nested calls of the same logical operation.
package lockmgr

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrAcquireTimeout is returned when a lock can not be claimed within
	// the configured bound.
	ErrAcquireTimeout = errors.New("lock acquisition timed out")

	// ErrInvalidLease signals a release with a lease that does not hold
	// the lock. This is a programming error of the caller, not a business
	// condition.
	ErrInvalidLease = errors.New("lease does not hold the lock")

	// ErrNotLocked signals a release of an account that is not locked.
	ErrNotLocked = errors.New("account is not locked")
)

// Lease identifies a lock holder. The zero value is never a valid lease.
type Lease struct {
	token string
}

// Token returns the opaque holder token.
func (l *Lease) Token() string {
	if l == nil {
		return ""
	}
	return l.token
}

func newLease() *Lease {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("lockmgr: entropy unavailable: %v", err))
	}
	return &Lease{token: hex.EncodeToString(buf)}
}

// Locker is the account lock contract. Acquire blocks until the account is
// free or ctx/timeout expires; passing the current holder's lease reenters
// without blocking. Release undoes one acquisition; the lock clears when
// the last acquisition is released.
type Locker interface {
	Acquire(ctx context.Context, account string, lease *Lease) (*Lease, error)
	Release(account string, lease *Lease) error
}

// accountLock is the per-account state: the holder token and a reentrancy
// counter, guarded by a short-held mutex.
type accountLock struct {
	mu      sync.Mutex
	token   string
	counter int
}

func (l *accountLock) tryAcquire(lease *Lease) (*Lease, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease != nil && l.counter > 0 && lease.token == l.token {
		l.counter++
		return lease, true
	}

	if l.counter == 0 {
		granted := lease
		if granted == nil {
			granted = newLease()
		}
		l.token = granted.token
		l.counter = 1
		return granted, true
	}

	return nil, false
}

func (l *accountLock) release(lease *Lease) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.counter < 1 {
		return ErrNotLocked
	}

	if lease == nil || lease.token != l.token {
		return ErrInvalidLease
	}

	l.counter--
	if l.counter == 0 {
		l.token = ""
	}

	return nil
}

// Manager is the in-process Locker. Locks are created lazily per account
// code and live for the process lifetime. The lock table mutex is held only
// while looking up or creating a lock entry, never while waiting.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*accountLock

	poll    time.Duration
	timeout time.Duration
}

// NewManager creates an in-process lock manager. poll is the wait interval
// between claim attempts; timeout bounds a single acquisition (0 means wait
// as long as ctx allows).
func NewManager(poll, timeout time.Duration) *Manager {
	return &Manager{
		locks:   make(map[string]*accountLock),
		poll:    poll,
		timeout: timeout,
	}
}

func (m *Manager) lockFor(account string) *accountLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[account]
	if !ok {
		l = &accountLock{}
		m.locks[account] = l
	}

	return l
}

// Acquire claims the account lock, blocking with a fixed poll interval.
func (m *Manager) Acquire(ctx context.Context, account string, lease *Lease) (*Lease, error) {
	l := m.lockFor(account)

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	for {
		if granted, ok := l.tryAcquire(lease); ok {
			return granted, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: account %s", ErrAcquireTimeout, account)
		case <-time.After(m.poll):
		}
	}
}

// Release undoes one acquisition of the account lock.
func (m *Manager) Release(account string, lease *Lease) error {
	m.mu.Lock()
	l, ok := m.locks[account]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: account %s", ErrNotLocked, account)
	}

	if err := l.release(lease); err != nil {
		return fmt.Errorf("%w: account %s", err, account)
	}

	return nil
}

// Noop is the Locker used when integrity keeping is disabled: every
// acquisition succeeds immediately and releases are ignored.
type Noop struct{}

func (Noop) Acquire(_ context.Context, _ string, lease *Lease) (*Lease, error) {
	if lease != nil {
		return lease, nil
	}
	return newLease(), nil
}

func (Noop) Release(string, *Lease) error { return nil }

// AcquireMany claims locks for all given accounts in sorted code order,
// which keeps concurrent multi-account operations deadlock-free. Existing
// leases may be threaded in per account for reentrant acquisition. On
// success it returns the leases by account and a function releasing all of
// them in reverse order; on failure everything claimed so far is released.
func AcquireMany(ctx context.Context, locker Locker, leases map[string]*Lease, accounts ...string) (map[string]*Lease, func(), error) {
	codes := make([]string, 0, len(accounts))
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		codes = append(codes, a)
	}
	sort.Strings(codes)

	granted := make(map[string]*Lease, len(codes))
	release := func() {
		for i := len(codes) - 1; i >= 0; i-- {
			if l, ok := granted[codes[i]]; ok {
				_ = locker.Release(codes[i], l)
			}
		}
	}

	for _, code := range codes {
		l, err := locker.Acquire(ctx, code, leases[code])
		if err != nil {
			release()
			return nil, nil, err
		}
		granted[code] = l
	}

	return granted, release, nil
}
