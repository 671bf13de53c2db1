// Package discovery resolves directory servers for identity domains
// through DNS SRV records.
//
// A domain that hosts its own key directory advertises the endpoints
// under the _keydir._tcp service label. Resolution orders endpoints by
// SRV priority and weight, so clients connect to the preferred server
// and can fall back down the list.
//
// # Usage Example
//
//	resolver := discovery.NewResolver("")
//
//	addr, err := resolver.DirectoryAddr("example.com")
//	if err != nil {
//		log.Fatalf("no directory for domain: %v", err)
//	}
//
//	client := &api.Client{ServerAddr: addr}
//
// The zero resolver address queries the local stub resolver; tests and
// special deployments can point it elsewhere.
package discovery
