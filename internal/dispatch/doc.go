// Package dispatch sends colour commands to balls and reports the outcome.
//
// A Dispatcher ties together the device registry, the frame codec and a
// transport. SendColorCommand never blocks the caller: it returns a channel
// that delivers exactly one Result. Each command is one attempt with a
// bounded timeout; retrying is left to the caller.
//
// Every Result carries a Message that can be shown to a user directly, for
// example "Color sent to 192.168.1.50" or "Connection timed out. Ball at
// 192.168.1.50 not responding."
//
// Attempts are optionally written to a HistoryStore (SQLite) and a
// MetricsWriter (InfluxDB). Failures in those sinks are logged only.
package dispatch
