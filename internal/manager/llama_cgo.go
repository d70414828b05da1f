//go:build llama

package manager

// Link flags for builds with -tags llama. libllama.so is expected in ./bin at
// link time and next to the chatd binary at run time.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
