// Package discovery resolves connection targets via mDNS service
// browsing. A Browser watches for advertised endpoints and can be
// turned into an address provider that picks a fresh target for every
// connection attempt.
package discovery
