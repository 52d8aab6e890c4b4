package config

import (
	"net"
	"strconv"
)

// EndpointURL returns the websocket URL the console connects to.
//
// An explicit URL is returned as is. Otherwise the URL is built from the
// scheme (wss when Secure), Host and Path; a non-zero Port replaces any port
// already present in Host.
func (e EndpointConfig) EndpointURL() string {
	if e.URL != "" {
		return e.URL
	}
	if e.Host == "" {
		return ""
	}

	scheme := "ws://"
	if e.Secure {
		scheme = "wss://"
	}

	host := e.Host
	if e.Port != 0 {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = net.JoinHostPort(host, strconv.Itoa(e.Port))
	}

	path := e.Path
	if path == "" {
		path = DefaultPath
	}
	if path[0] != '/' {
		path = "/" + path
	}

	return scheme + host + path
}
