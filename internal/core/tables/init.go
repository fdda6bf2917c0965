// Package tables holds the inventory field table: the canonical column
// order, the field grammar with completeness weights, the identity fields
// used for duplicate resolution and the typed storage columns.
package tables
