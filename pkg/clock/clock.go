// Package clock provides the wall clock and its network synchronization.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Source provides the current time.
type Source interface {
	Now() time.Time
}

// SourceFunc is func type of Source.
type SourceFunc func() time.Time

// Now implements Source.
func (f SourceFunc) Now() time.Time {
	return f()
}

// System is the local system clock.
var System Source = SourceFunc(time.Now)

// Syncer synchronizes a clock with a time server.
type Syncer interface {
	Sync(context.Context) error
}

// DefaultMinYear is the earliest year a clock is believed to be set.
const DefaultMinYear = 2016

// IsPlausible tells whether t looks like a clock that has been set.
func IsPlausible(t time.Time, minYear int) bool {
	return t.Year() >= minYear
}

// NTP defaults.
const (
	DefaultNTPServer   = "pool.ntp.org"
	DefaultNTPAttempts = 10
	DefaultNTPInterval = 2 * time.Second
)

// NTP is a Source corrected by the offset measured against an NTP server.
// It doesn't set the system clock.
type NTP struct {
	Server   string
	Attempts int
	Interval time.Duration
	Base     Source

	offset time.Duration
	synced bool
	lock   sync.RWMutex

	query func(server string) (time.Duration, error)
}

// NewNTP creates an NTP clock over the system clock.
func NewNTP(server string) *NTP {
	if server == "" {
		server = DefaultNTPServer
	}
	return &NTP{
		Server:   server,
		Attempts: DefaultNTPAttempts,
		Interval: DefaultNTPInterval,
		Base:     System,
		query:    queryOffset,
	}
}

func queryOffset(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	if err = resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// Now implements Source.
func (c *NTP) Now() time.Time {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.base().Now().Add(c.offset)
}

// Synced tells whether an offset has been measured.
func (c *NTP) Synced() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.synced
}

// Sync implements Syncer. It queries the server up to Attempts times,
// Interval apart.
func (c *NTP) Sync(ctx context.Context) error {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	glog.Infof("synchronizing time with %s", c.Server)
	var err error
	for n := 1; n <= attempts; n++ {
		var offset time.Duration
		if offset, err = c.query(c.Server); err == nil {
			c.lock.Lock()
			c.offset, c.synced = offset, true
			c.lock.Unlock()
			glog.Infof("time synchronized, offset %v", offset)
			return nil
		}
		glog.Infof("waiting for system time to be set... (%d/%d): %v", n, attempts, err)
		if n == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Interval):
		}
	}
	return errors.Wrapf(err, "sync time with %s", c.Server)
}

func (c *NTP) base() Source {
	if c.Base == nil {
		return System
	}
	return c.Base
}
