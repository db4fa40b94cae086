//go:build !routelint_debug

package routepattern

const debug = false
