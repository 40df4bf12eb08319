// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error types with structured context:
// the failing operation, the resource involved, and suggestions for fixing it.
package issue
