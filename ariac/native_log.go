//go:build ariac && cgo

package ariac

// typedef const char cchar_t;
import "C"

import "sync/atomic"

var logHandler atomic.Pointer[func(string)]

//export goAriaLog
func goAriaLog(msg *C.cchar_t) {
	if fn := logHandler.Load(); fn != nil && *fn != nil {
		(*fn)(C.GoString(msg))
	}
}
