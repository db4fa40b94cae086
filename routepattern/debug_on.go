//go:build routelint_debug

package routepattern

// debug turns position contract violations into panics.
const debug = true
