package api

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// clock hands out cache-busting millisecond timestamps. Values strictly
// increase per clock even when two calls land in the same millisecond.
type clock struct {
	now  func() time.Time
	last atomic.Int64
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) next() string {
	for {
		prev := c.last.Load()
		ms := c.now().UnixMilli()
		if ms <= prev {
			ms = prev + 1
		}
		if c.last.CompareAndSwap(prev, ms) {
			return strconv.FormatInt(ms, 10)
		}
	}
}

// Alias returns the local part of an address: everything before the first
// "@", or the whole string when there is none.
func Alias(address string) string {
	alias, _, _ := strings.Cut(address, "@")
	return alias
}
