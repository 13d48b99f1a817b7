// Command reelhold is the CLI for the Reelhold watch-progress daemon. Most
// commands talk to a running daemon over its local HTTP API; serve runs the
// daemon in the foreground, and config works without one.
package main
