package machines

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/machine1"
)

// ErrMachinedBackoff is returned while a failed machined dial is waiting
// out its backoff.
var ErrMachinedBackoff = errors.New("machined unavailable, retry pending")

// DialFunc opens a machined connection.
type DialFunc func() (MachineLister, error)

// DialAddress returns a DialFunc that reaches machined on the bus at
// address.
func DialAddress(address string) DialFunc {
	return func() (MachineLister, error) {
		conn, err := Dial(address)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Redialer is a MachineLister that connects to machined on first use and
// reconnects after a call fails. Dial attempts after a failure are spaced
// by exponential backoff, so a host without machined is not dialed every
// cycle.
type Redialer struct {
	dial    DialFunc
	backoff *Backoff
	now     func() time.Time

	mu        sync.Mutex
	conn      MachineLister
	notBefore time.Time
}

// NewRedialer returns a Redialer using dial and cfg.
func NewRedialer(dial DialFunc, cfg BackoffConfig) *Redialer {
	return &Redialer{
		dial:    dial,
		backoff: NewBackoff(cfg, time.Now().UnixNano()),
		now:     time.Now,
	}
}

// lister returns the live connection, dialing when there is none and the
// backoff window has passed.
func (r *Redialer) lister() (MachineLister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return r.conn, nil
	}
	if now := r.now(); now.Before(r.notBefore) {
		return nil, fmt.Errorf("%w in %s", ErrMachinedBackoff, r.notBefore.Sub(now).Round(time.Second))
	}
	conn, err := r.dial()
	if err != nil {
		r.notBefore = r.now().Add(r.backoff.Next())
		return nil, err
	}
	r.backoff.Reset()
	r.conn = conn
	return conn, nil
}

// drop forgets the connection so the next call redials.
func (r *Redialer) drop() {
	r.mu.Lock()
	r.conn = nil
	r.mu.Unlock()
}

// ListMachines implements MachineLister.
func (r *Redialer) ListMachines() ([]machine1.MachineStatus, error) {
	conn, err := r.lister()
	if err != nil {
		return nil, err
	}
	out, err := conn.ListMachines()
	if err != nil {
		r.drop()
	}
	return out, err
}

// DescribeMachine implements MachineLister. A failure on one machine does
// not drop the connection.
func (r *Redialer) DescribeMachine(name string) (map[string]interface{}, error) {
	conn, err := r.lister()
	if err != nil {
		return nil, err
	}
	return conn.DescribeMachine(name)
}
