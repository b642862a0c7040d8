// Package connectors contains the source-type implementations of the
// Connector port. A connector lists the documents a source currently
// holds and streams their raw content; it never interprets, normalizes,
// or deduplicates what it fetches.
//
// Each subpackage exposes a Builder that the CLI registers with the
// ConnectorFactory at startup.
package connectors
