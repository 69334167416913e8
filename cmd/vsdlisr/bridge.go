//go:build cgo && vapoursynth

package main

/*
#cgo pkg-config: vapoursynth
#include <stdlib.h>
#include "glue.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	pointer "github.com/mattn/go-pointer"

	"vsdlisr/internal/dlisr"
	"vsdlisr/internal/vs"
)

var errNoFrame = errors.New("host returned no frame")

//export goDLISRInit
func goDLISRInit(plugin *C.VSPlugin, vspapi *C.VSPLUGINAPI) {
	r := registration
	fn := r.Functions[0]
	cs := cstrings(r.ID, r.Namespace, r.Name, fn.Name, fn.Args, fn.Returns)
	defer freeCStrings(cs)
	C.dlisr_register(plugin, vspapi, cs[0], cs[1], cs[2], C.int(r.Version), C.int(r.APIVersion),
		cs[3], cs[4], cs[5])
}

//export goDLISRCreate
func goDLISRCreate(in *C.VSMap, out *C.VSMap, core *C.VSCore, vsapi *C.VSAPI) {
	f, msg := createFilter(&hostMap{api: vsapi, m: in})
	if f == nil {
		cmsg := C.CString(msg)
		defer C.free(unsafe.Pointer(cmsg))
		C.dlisr_map_set_error(vsapi, out, cmsg)
		return
	}

	vi := cVideoInfo(f.VideoInfo())
	name := C.CString(dlisr.FilterName)
	defer C.free(unsafe.Pointer(name))
	dep := f.Dependencies()[0]
	node := dep.Node.(*hostNode)
	C.dlisr_create_filter(out, name, &vi, C.int(f.Mode()), node.ptr, C.int(dep.Pattern),
		pointer.Save(f), core, vsapi)
}

//export goDLISRGetFrame
func goDLISRGetFrame(n C.int, reason C.int, instance unsafe.Pointer, ctx *C.VSFrameContext, core *C.VSCore, vsapi *C.VSAPI) *C.VSFrame {
	f, ok := pointer.Restore(instance).(*dlisr.Filter)
	if !ok {
		return nil
	}
	fctx := &hostContext{api: vsapi, ctx: ctx}
	fr, err := f.GetFrame(int(n), vs.ActivationReason(reason), fctx, &hostCore{api: vsapi, core: core})
	if err != nil {
		cmsg := C.CString(vs.PrefixError(dlisr.FilterName, err))
		defer C.free(unsafe.Pointer(cmsg))
		C.dlisr_set_filter_error(vsapi, cmsg, ctx)
		return nil
	}
	if fr == nil {
		return nil
	}
	return fr.Ref.(*C.VSFrame)
}

//export goDLISRFree
func goDLISRFree(instance unsafe.Pointer, vsapi *C.VSAPI) {
	if f, ok := pointer.Restore(instance).(*dlisr.Filter); ok {
		f.Free()
	}
	pointer.Unref(instance)
}

func cstrings(ss ...string) []*C.char {
	out := make([]*C.char, len(ss))
	for i, s := range ss {
		out[i] = C.CString(s)
	}
	return out
}

func freeCStrings(cs []*C.char) {
	for _, c := range cs {
		C.free(unsafe.Pointer(c))
	}
}

type hostMap struct {
	api *C.VSAPI
	m   *C.VSMap
}

func (h *hostMap) Node(key string) (vs.Node, error) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	var cerr C.int
	ptr := C.dlisr_map_get_node(h.api, h.m, ckey, &cerr)
	if cerr != 0 || ptr == nil {
		return nil, fmt.Errorf("%s: %w", key, vs.ErrKeyMissing)
	}
	return &hostNode{api: h.api, ptr: ptr}, nil
}

func (h *hostMap) Int(key string) (int64, bool) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	var cerr C.int
	v := C.dlisr_map_get_int(h.api, h.m, ckey, &cerr)
	if cerr != 0 {
		return 0, false
	}
	return int64(v), true
}

type hostNode struct {
	api *C.VSAPI
	ptr *C.VSNode
}

func (n *hostNode) VideoInfo() vs.VideoInfo {
	vi := C.dlisr_video_info(n.api, n.ptr)
	return vs.VideoInfo{
		Format:    goFormat(&vi.format),
		FPSNum:    int64(vi.fpsNum),
		FPSDen:    int64(vi.fpsDen),
		Width:     int(vi.width),
		Height:    int(vi.height),
		NumFrames: int(vi.numFrames),
	}
}

func (n *hostNode) Release() { C.dlisr_free_node(n.api, n.ptr) }

type hostContext struct {
	api *C.VSAPI
	ctx *C.VSFrameContext
}

func (h *hostContext) RequestFrame(n int, node vs.Node) {
	C.dlisr_request_frame(h.api, C.int(n), node.(*hostNode).ptr, h.ctx)
}

func (h *hostContext) GetFrame(n int, node vs.Node) (*vs.Frame, error) {
	ptr := C.dlisr_get_frame(h.api, C.int(n), node.(*hostNode).ptr, h.ctx)
	if ptr == nil {
		return nil, errNoFrame
	}
	return wrapFrame(h.api, ptr, false), nil
}

type hostCore struct {
	api  *C.VSAPI
	core *C.VSCore
}

func (h *hostCore) NewVideoFrame(f vs.Format, width, height int, propSrc *vs.Frame) (*vs.Frame, error) {
	cf := cFormat(f)
	var src *C.VSFrame
	if propSrc != nil {
		src = propSrc.Ref.(*C.VSFrame)
	}
	ptr := C.dlisr_new_frame(h.api, &cf, C.int(width), C.int(height), src, h.core)
	if ptr == nil {
		return nil, errNoFrame
	}
	return wrapFrame(h.api, ptr, true), nil
}

func (h *hostCore) FreeFrame(f *vs.Frame) {
	if f == nil {
		return
	}
	C.dlisr_free_frame(h.api, f.Ref.(*C.VSFrame))
}

// wrapFrame exposes the frame's planes as byte slices over host memory.
func wrapFrame(api *C.VSAPI, ptr *C.VSFrame, writable bool) *vs.Frame {
	fr := &vs.Frame{
		Format: goFormat(C.dlisr_frame_format(api, ptr)),
		Width:  int(C.dlisr_frame_width(api, ptr, 0)),
		Height: int(C.dlisr_frame_height(api, ptr, 0)),
		Ref:    ptr,
	}
	w := C.int(0)
	if writable {
		w = 1
	}
	for p := 0; p < fr.Format.NumPlanes && p < vs.MaxPlanes; p++ {
		stride := int(C.dlisr_stride(api, ptr, C.int(p)))
		h := int(C.dlisr_frame_height(api, ptr, C.int(p)))
		base := C.dlisr_plane_ptr(api, ptr, C.int(p), w)
		fr.Strides[p] = stride
		fr.Planes[p] = unsafe.Slice((*byte)(unsafe.Pointer(base)), stride*h)
	}
	return fr
}

func goFormat(f *C.VSVideoFormat) vs.Format {
	return vs.Format{
		ColorFamily:   vs.ColorFamily(f.colorFamily),
		SampleType:    vs.SampleType(f.sampleType),
		BitsPerSample: int(f.bitsPerSample),
		SubSamplingW:  int(f.subSamplingW),
		SubSamplingH:  int(f.subSamplingH),
		NumPlanes:     int(f.numPlanes),
	}
}

func cFormat(f vs.Format) C.VSVideoFormat {
	return C.VSVideoFormat{
		colorFamily:    C.int(f.ColorFamily),
		sampleType:     C.int(f.SampleType),
		bitsPerSample:  C.int(f.BitsPerSample),
		bytesPerSample: C.int(f.BytesPerSample()),
		subSamplingW:   C.int(f.SubSamplingW),
		subSamplingH:   C.int(f.SubSamplingH),
		numPlanes:      C.int(f.NumPlanes),
	}
}

func cVideoInfo(vi vs.VideoInfo) C.VSVideoInfo {
	return C.VSVideoInfo{
		format:    cFormat(vi.Format),
		fpsNum:    C.int64_t(vi.FPSNum),
		fpsDen:    C.int64_t(vi.FPSDen),
		width:     C.int(vi.Width),
		height:    C.int(vi.Height),
		numFrames: C.int(vi.NumFrames),
	}
}
