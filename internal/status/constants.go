// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a unit whose last cycle read without failure.
const HealthOK uint16 = 1

// HealthError represents a unit whose last cycle failed or timed out.
const HealthError uint16 = 2

// ---- LIMITS ----

// MaxSecondsInError is where SecondsInError saturates. It never wraps.
const MaxSecondsInError = 65535

// CodeGeneric is reported for failures that carry no code of their own.
const CodeGeneric uint16 = 1
