package gpu

import (
	"sync/atomic"
	"time"

	"github.com/vivekchamoli/legion2go/internal/ui"
)

type capabilityVerdict struct {
	capable bool
	expiry  time.Time
}

// CapabilityCache memoizes the verdict of a CapabilityProbe for a fixed TTL.
// Concurrent refreshes may probe twice, the last verdict wins.
type CapabilityCache struct {
	probe CapabilityProbe
	ttl   time.Duration
	now   func() time.Time

	verdict atomic.Pointer[capabilityVerdict]
	probes  atomic.Int64
}

func NewCapabilityCache(probe CapabilityProbe, ttl time.Duration) *CapabilityCache {
	return &CapabilityCache{
		probe: probe,
		ttl:   ttl,
		now:   time.Now,
	}
}

// IsCapable returns the cached verdict, probing again once it expired
func (c *CapabilityCache) IsCapable() bool {
	now := c.now()
	if v := c.verdict.Load(); v != nil && now.Before(v.expiry) {
		return v.capable
	}

	c.probes.Add(1)
	capable, err := c.probe.Probe()
	if err != nil {
		ui.Debug("Hybrid graphics probe failed: %v", err)
		capable = false
	}
	c.verdict.Store(&capabilityVerdict{
		capable: capable,
		expiry:  now.Add(c.ttl),
	})
	return capable
}

// Invalidate forces the next IsCapable call to probe again
func (c *CapabilityCache) Invalidate() {
	c.verdict.Store(nil)
}

func (c *CapabilityCache) ProbeCount() int64 {
	return c.probes.Load()
}
