// Package discovery finds radio backends on the local network over mDNS and
// lets the dev backend announce itself.
package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/five82/carradio/internal/logging"
)

// Service is the mDNS service type carradio backends announce.
const (
	Service = "_carradio._tcp"
	Domain  = "local."
)

const resourceKey = "resource="

// DefaultTimeout bounds a browse when the caller has no deadline.
const DefaultTimeout = 3 * time.Second

// Backend is one announced radio backend.
type Backend struct {
	Instance string
	Host     string
	Port     int
	Resource string
}

// Addr returns host:port suitable for config.Config.WithBackend.
func (b Backend) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

func (b Backend) String() string {
	if b.Resource == "" {
		return fmt.Sprintf("%s at %s", b.Instance, b.Addr())
	}
	return fmt.Sprintf("%s at %s (resource %s)", b.Instance, b.Addr(), b.Resource)
}

// Browse collects backends until timeout elapses or ctx ends. Results are
// sorted by instance name.
func Browse(ctx context.Context, timeout time.Duration) ([]Backend, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("init mdns resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []Backend, 1)
	go func() {
		done <- collect(browseCtx, entries)
	}()

	if err := resolver.Browse(browseCtx, Service, Domain, entries); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("browse %s: %w", Service, err)
	}
	<-browseCtx.Done()
	return <-done, nil
}

// First returns the first backend found, preferring the lowest instance name.
func First(ctx context.Context, timeout time.Duration) (Backend, error) {
	backends, err := Browse(ctx, timeout)
	if err != nil {
		return Backend{}, err
	}
	if len(backends) == 0 {
		return Backend{}, fmt.Errorf("no %s backend found on %s", Service, Domain)
	}
	return backends[0], nil
}

func collect(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) []Backend {
	seen := make(map[string]Backend)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return sortBackends(seen)
			}
			b, ok := fromEntry(entry)
			if !ok {
				continue
			}
			if _, exists := seen[b.Instance]; !exists {
				logging.Infof("Discovered radio backend: %s", b)
			}
			seen[b.Instance] = b
		case <-ctx.Done():
			return sortBackends(seen)
		}
	}
}

func fromEntry(entry *zeroconf.ServiceEntry) (Backend, bool) {
	if entry == nil || entry.Port <= 0 {
		return Backend{}, false
	}
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		host = strings.TrimSuffix(entry.HostName, ".")
	default:
		return Backend{}, false
	}
	b := Backend{Instance: entry.Instance, Host: host, Port: entry.Port}
	for _, txt := range entry.Text {
		if strings.HasPrefix(txt, resourceKey) {
			b.Resource = strings.TrimPrefix(txt, resourceKey)
		}
	}
	return b, true
}

func sortBackends(seen map[string]Backend) []Backend {
	out := make([]Backend, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Backend) int { return strings.Compare(a.Instance, b.Instance) })
	return out
}

// Announcement is a live mDNS registration.
type Announcement struct {
	server *zeroconf.Server
}

// Announce registers a backend under instance on port. Call Shutdown to
// withdraw it.
func Announce(instance string, port int, resource string) (*Announcement, error) {
	var txt []string
	if resource != "" {
		txt = append(txt, resourceKey+resource)
	}
	server, err := zeroconf.Register(instance, Service, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("announce %s: %w", instance, err)
	}
	logging.Infof("Announcing %s as %s on port %d", instance, Service, port)
	return &Announcement{server: server}, nil
}

// Shutdown withdraws the announcement.
func (a *Announcement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}
