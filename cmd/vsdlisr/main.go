// Command vsdlisr is the DLISR frame-server plugin. Build it as a shared
// library with the host bridge enabled:
//
//	go build -buildmode=c-shared -tags "vapoursynth ngx cuda yuv" -o libvsdlisr.so ./cmd/vsdlisr
//
// Without the vapoursynth tag the package builds to an empty program.
package main

func main() {}
