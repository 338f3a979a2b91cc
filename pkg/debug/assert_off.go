//go:build !debug
// +build !debug

package debug

// Assert is compiled out unless built with -tags debug.
//
// msg must be a string, func() string or fmt.Stringer.
func Assert(cond bool, msg interface{}) {
}
