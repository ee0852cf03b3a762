//go:build !go1.22

package goscan

import "go/types"

// unalias is the identity before Go 1.22: go/types has no Alias nodes there,
// so types.Unalias would return t unchanged
func unalias(t types.Type) types.Type { return t }
