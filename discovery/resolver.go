package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// srvService is the SRV label the directory publishes under.
const srvService = "_keydir._tcp."

// DefaultResolverAddr is the systemd-resolved stub listener, the usual
// local resolver on the hosts this client runs on.
const DefaultResolverAddr = "127.0.0.53:53"

// ServerEndpoint is one advertised directory server.
type ServerEndpoint struct {
	Host     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// Addr returns the endpoint as an HTTPS base address for the API
// client.
func (e ServerEndpoint) Addr() string {
	return fmt.Sprintf("https://%s:%d", e.Host, e.Port)
}

// Resolver discovers directory servers for an identity domain through
// DNS SRV records.
type Resolver struct {
	resolverAddr string
	client       *dns.Client
}

// NewResolver creates a resolver querying the given DNS server
// address. An empty address uses DefaultResolverAddr.
func NewResolver(resolverAddr string) *Resolver {
	if resolverAddr == "" {
		resolverAddr = DefaultResolverAddr
	}
	return &Resolver{
		resolverAddr: resolverAddr,
		client:       new(dns.Client),
	}
}

// Resolve returns the directory endpoints advertised for a domain,
// ordered by SRV priority (lower first) and weight (higher first)
// within a priority.
func (r *Resolver) Resolve(domain string) ([]ServerEndpoint, error) {
	if domain == "" {
		return nil, fmt.Errorf("empty domain")
	}

	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{
		Name:   srvService + dns.Fqdn(domain),
		Qtype:  dns.TypeSRV,
		Qclass: dns.ClassINET,
	}}

	in, _, err := r.client.Exchange(m, r.resolverAddr)
	if err != nil {
		return nil, fmt.Errorf("could not query %s: %w", r.resolverAddr, err)
	}

	endpoints := endpointsFromAnswers(in.Answer)
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no directory advertised for domain %q", domain)
	}

	return endpoints, nil
}

// DirectoryAddr resolves a domain and returns the preferred endpoint's
// base address.
func (r *Resolver) DirectoryAddr(domain string) (string, error) {
	endpoints, err := r.Resolve(domain)
	if err != nil {
		return "", err
	}
	return endpoints[0].Addr(), nil
}

// endpointsFromAnswers extracts and orders directory endpoints from
// SRV answer records. Non-SRV records are ignored.
func endpointsFromAnswers(answers []dns.RR) []ServerEndpoint {
	endpoints := make([]ServerEndpoint, 0, len(answers))

	for _, answer := range answers {
		srv, ok := answer.(*dns.SRV)
		if !ok {
			continue
		}
		endpoints = append(endpoints, ServerEndpoint{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     srv.Port,
			Priority: srv.Priority,
			Weight:   srv.Weight,
		})
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Priority != endpoints[j].Priority {
			return endpoints[i].Priority < endpoints[j].Priority
		}
		return endpoints[i].Weight > endpoints[j].Weight
	})

	return endpoints
}
