//go:build go1.22

package goscan

import "go/types"

// unalias forwards to types.Unalias, available from Go 1.22
func unalias(t types.Type) types.Type { return types.Unalias(t) }
