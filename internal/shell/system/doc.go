// Package system implements the deploy steps as side-effecting executors
// against a host.Host. Each executor owns one external resource (packages,
// app directory, runtime env, secret file, service unit, proxy vhost,
// firewall rules) and is safe to re-run; the secret writer is the one
// create-once executor and refuses to overwrite an existing file.
package system
