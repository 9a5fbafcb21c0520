// Package alerts delivers operator notifications via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when alerting is disabled. Pipeline code
// depends only on the small Service interface, so alternative transports slot
// in without touching callers.
package alerts
