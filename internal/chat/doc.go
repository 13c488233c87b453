// Package chat implements the room membership and message broadcast engine
// for the CityChat relay.
//
// The Registry owns the mapping from room id to member set, the Manager owns
// every live Session, and each Session drives the coordinate-to-room state
// machine for one client connection. The transport layer plugs in through the
// Notifier and GeocodeProvider interfaces and performs all network delivery
// itself; nothing in this package touches a socket.
package chat
