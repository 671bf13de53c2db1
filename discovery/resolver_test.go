package discovery

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func srvRecord(target string, port, priority, weight uint16) *dns.SRV {
	return &dns.SRV{
		Hdr: dns.RR_Header{
			Name:   "_keydir._tcp.example.com.",
			Rrtype: dns.TypeSRV,
			Class:  dns.ClassINET,
		},
		Priority: priority,
		Weight:   weight,
		Port:     port,
		Target:   target,
	}
}

func TestEndpointsFromAnswers(t *testing.T) {
	answers := []dns.RR{
		srvRecord("backup.example.com.", 443, 20, 0),
		srvRecord("primary.example.com.", 8443, 10, 5),
		srvRecord("secondary.example.com.", 443, 10, 10),
	}

	endpoints := endpointsFromAnswers(answers)
	require.Len(t, endpoints, 3)

	// Lowest priority first, heavier weight first within a priority.
	assert.Equal(t, "secondary.example.com", endpoints[0].Host)
	assert.Equal(t, "primary.example.com", endpoints[1].Host)
	assert.Equal(t, "backup.example.com", endpoints[2].Host)
	assert.Equal(t, uint16(8443), endpoints[1].Port)
}

func TestEndpointsFromAnswersIgnoresOtherRecords(t *testing.T) {
	answers := []dns.RR{
		&dns.A{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA}},
		srvRecord("dir.example.com.", 443, 0, 0),
	}

	endpoints := endpointsFromAnswers(answers)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "dir.example.com", endpoints[0].Host)
}

func TestServerEndpointAddr(t *testing.T) {
	endpoint := ServerEndpoint{Host: "dir.example.com", Port: 8443}
	assert.Equal(t, "https://dir.example.com:8443", endpoint.Addr())
}

func TestResolveEmptyDomain(t *testing.T) {
	resolver := NewResolver("")
	_, err := resolver.Resolve("")
	require.Error(t, err)
}

func TestNewResolverDefaultAddr(t *testing.T) {
	assert.Equal(t, DefaultResolverAddr, NewResolver("").resolverAddr)
	assert.Equal(t, "10.0.0.1:53", NewResolver("10.0.0.1:53").resolverAddr)
}
