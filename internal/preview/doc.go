// Package preview runs the DLISR filter outside the frame server and serves
// the upscaled result to a browser over WHEP.
//
// A Host plays the frame server's part: it drives the filter's request and
// ready phases against a synthetic Clip. A FilterSource turns rendered frames
// into interleaved RGB24, ffmpeg encodes them to H.264, and the
// SampleBroadcaster fans the samples out to every WebRTC session.
package preview
