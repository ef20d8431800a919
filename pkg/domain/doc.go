// Package domain defines the shared types of the validation gateway: the
// closed schema-kind catalog, validation request/outcome contracts, the
// security-scan verdict, audit records, and the error taxonomy. It has no
// dependencies on other gateway packages so every layer can share it.
package domain
