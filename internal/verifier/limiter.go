package verifier

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// limiter combines an optional global rate with one token bucket per
// registrable domain.
type limiter struct {
	global *rate.Limiter

	hostRate  rate.Limit
	hostBurst int
	mu        sync.Mutex
	hosts     map[string]*rate.Limiter
}

func newLimiter(globalRate, hostRate float64) *limiter {
	l := &limiter{hosts: make(map[string]*rate.Limiter)}
	if globalRate > 0 {
		l.global = rate.NewLimiter(rate.Limit(globalRate), burst(globalRate))
	}
	if hostRate > 0 {
		l.hostRate = rate.Limit(hostRate)
		l.hostBurst = burst(hostRate)
	}
	return l
}

func burst(r float64) int {
	if r < 1 {
		return 1
	}
	return int(r)
}

// Wait blocks until a check of rawURL may start or ctx is done.
func (l *limiter) Wait(ctx context.Context, rawURL string) error {
	if l.global != nil {
		if err := l.global.Wait(ctx); err != nil {
			return err
		}
	}
	if l.hostRate == 0 {
		return nil
	}
	return l.forHost(rawURL).Wait(ctx)
}

func (l *limiter) forHost(rawURL string) *rate.Limiter {
	key := registrableDomain(rawURL)

	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.hosts[key]
	if !ok {
		lim = rate.NewLimiter(l.hostRate, l.hostBurst)
		l.hosts[key] = lim
	}
	return lim
}

// registrableDomain maps docs.acme.co.uk and api.acme.co.uk to acme.co.uk.
// Hosts without a public suffix (IPs, single labels) key on themselves.
func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
