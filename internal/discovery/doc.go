// Package discovery finds balls on the local network over mDNS and binds
// their addresses in the device registry.
//
// Each ball advertises a DNS-SD service (by default _jughead-ball._udp in
// local.) with a TXT record id=N naming its ball id. The first IPv4
// address of the entry is preferred, falling back to IPv6. When the
// advertised port is the standard ball port (or zero) the binding is the
// bare IP, otherwise ip:port.
//
// Only unbound balls are bound unless Override is set, so addresses
// entered by an operator survive a later announcement.
//
// The Browser interface separates the zeroconf layer from the binding
// logic; NewMDNSBrowser is the production implementation.
package discovery
