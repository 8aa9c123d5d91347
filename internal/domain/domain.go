// Package domain holds the core types shared across faunalens layers.
package domain

// KeyPrefix namespaces all faunalens keys in the store.
const KeyPrefix = "faunalens:"
