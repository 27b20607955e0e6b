// Package persistence keeps client state that must survive restarts: the
// gateways this client has connected to or discovered, with the device
// token and certificate fingerprint each one issued or advertised.
//
// Messages and events are never persisted.
package persistence
