// Package services holds the core ingestion logic: classification,
// vector synchronization, run orchestration, and scheduling. Services
// depend only on the port interfaces, never on concrete adapters.
package services
