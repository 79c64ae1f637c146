// Package ir provides the declaration model for service objects.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// declaration model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Attributes, rules and type tags are immutable once a service is built
//   - Rule is a sealed interface; the validation engine switches on it
//   - Numeric comparisons are exact (big.Rat / apd.Decimal), never float
//   - All JSON tags use snake_case
package ir
