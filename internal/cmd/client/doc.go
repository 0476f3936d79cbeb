// Package clientcmd holds the cobra command groups the grace CLI uses to
// talk to a running server over its JSON HTTP API.
package clientcmd
