// Package types provides core conversation types used across the aitas runtime.
// This package has ZERO dependencies on other aitas packages to avoid circular
// imports. All other packages should import types from here.
package types
