// Package domain holds the shared vocabulary of the Grace server: entity
// identifiers and names, command metadata, reference types, retention
// policy, and the closed error taxonomy with its message catalog.
package domain
