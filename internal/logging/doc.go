// Package logging provides opt-in file-based logging with rotation for cupertino.
// When the --debug flag is set, comprehensive logs are written to ~/.cupertino/logs/
// for debugging and troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only. In
// MCP server mode, stdout is reserved exclusively for the JSON-RPC stream, so
// logging goes to file only regardless of the debug flag.
package logging
