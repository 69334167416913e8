//go:build cgo && yuv

package rgb

/*
#cgo CFLAGS: -I/usr/include -I/usr/local/include
#cgo LDFLAGS: -lyuv

#include <stdint.h>
#include <libyuv.h>
*/
import "C"

// ToInterleaved packs the three planes of src into dst using libyuv.
func ToInterleaved(dst []byte, src Planar) {
	src.mustFit(len(dst))
	s := C.int(src.stride())
	C.MergeRGBPlane(
		(*C.uint8_t)(&src.Planes[0][0]), s,
		(*C.uint8_t)(&src.Planes[1][0]), s,
		(*C.uint8_t)(&src.Planes[2][0]), s,
		(*C.uint8_t)(&dst[0]), C.int(src.Width*3),
		C.int(src.Width), C.int(src.Height),
	)
}

// FromInterleaved unpacks src into the planes of dst using libyuv.
func FromInterleaved(dst Planar, src []byte) {
	dst.mustFit(len(src))
	s := C.int(dst.stride())
	C.SplitRGBPlane(
		(*C.uint8_t)(&src[0]), C.int(dst.Width*3),
		(*C.uint8_t)(&dst.Planes[0][0]), s,
		(*C.uint8_t)(&dst.Planes[1][0]), s,
		(*C.uint8_t)(&dst.Planes[2][0]), s,
		C.int(dst.Width), C.int(dst.Height),
	)
}

// Impl reports the active conversion backend.
func Impl() string { return "libyuv" }
