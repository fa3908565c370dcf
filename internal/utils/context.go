// Package utils provides shared helpers and context keys.
package utils

// ContextKeySubject is the echo context key under which the auth middleware
// stores the authenticated subject name.
const ContextKeySubject = "subject"
