// Package proxy provides a forward HTTP proxy whose outbound connections
// pass through the firewall gates.
//
// Programs that cannot be linked against the firewall directly can still be
// held to the rule table by pointing HTTP_PROXY and HTTPS_PROXY at this
// listener. Every upstream connection the proxy opens is made with the
// engine's DialContext, so a hostname goes through the resolution gate and
// every address through the connection gate.
//
// # Request Handling
//
//   - CONNECT host:port opens a tunnel; the client speaks TLS end to end
//   - Absolute-form requests (GET http://host/path) are forwarded
//   - Policy denials answer 403 Forbidden
//   - Other upstream failures answer 502 Bad Gateway
//
// # Running the Proxy
//
//	srv := proxy.NewServer(&proxy.Config{
//	    ListenAddr: "127.0.0.1:3128",
//	    Dialer:     engine,
//	})
//	srv.Start() // Blocks, serving requests
package proxy
