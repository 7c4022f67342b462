/*
Dunno is a multi-process static file server built on a readiness
reactor.

Each worker process owns a single goroutine that multiplexes a
listening socket and all of its connections over epoll (Linux) or
kqueue (Darwin). Requests are parsed incrementally as bytes arrive and
files are streamed back in small fixed chunks. A connection never
outlives its one response. The master process only supervises: it
re-executes itself once per worker, and every worker binds the same
address with SO_REUSEPORT so the kernel spreads the accept load.

Usage:

	dunno -r ./site -p 8080 -w 4

Modules:

  - app: process lifecycle, master/worker split, logging
  - config: flag, environment and file configuration
  - core: the reactor loop and per-connection state machine
  - core/http: incremental parser, request/response framing
  - core/fs: document root resolution and content types
  - core/poller: epoll/kqueue readiness abstraction
  - core/pools: byte buffer pooling
*/
package main
