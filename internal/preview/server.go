package preview

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

// Config is the encoder side of the preview server. Width and Height are
// the filter's output size.
type Config struct {
	Width, Height int
	FPS           int
	BitrateKbps   int
	FFmpeg        string
}

// StartFunc starts an encoding pipeline.
type StartFunc func(PipelineConfig) (Stopper, error)

func startH264(cfg PipelineConfig) (Stopper, error) {
	p, err := StartH264Pipeline(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Option customises a WhepServer.
type Option func(*WhepServer)

// WithStarter replaces the ffmpeg pipeline.
func WithStarter(start StartFunc) Option {
	return func(s *WhepServer) { s.start = start }
}

// WithStats adds a "filter" section to /health.
func WithStats(stats func() any) Option {
	return func(s *WhepServer) { s.stats = stats }
}

// WhepServer serves one shared encoded stream to any number of WHEP
// sessions. The encoder runs while at least one session is open.
type WhepServer struct {
	cfg       Config
	newSource func() Source
	start     StartFunc
	stats     func() any

	mu       sync.Mutex
	sessions map[string]*session
	bc       *SampleBroadcaster
	pipe     Stopper
}

type session struct {
	pc     *webrtc.PeerConnection
	remove func()
}

// NewWhepServer returns a server that encodes frames from newSource.
func NewWhepServer(cfg Config, newSource func() Source, opts ...Option) *WhepServer {
	s := &WhepServer{
		cfg:       cfg,
		newSource: newSource,
		start:     startH264,
		sessions:  map[string]*session{},
		bc:        NewSampleBroadcaster(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *WhepServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/whep", s.handleWHEPPost)
	mux.HandleFunc("/whep/", s.handleWHEPResource)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, indexHTML)
	})
}

func (s *WhepServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n, encoding := len(s.sessions), s.pipe != nil
	s.mu.Unlock()
	body := map[string]any{
		"status":   "ok",
		"sessions": n,
		"encoding": encoding,
		"counters": GetCounters(),
	}
	if s.stats != nil {
		body["filter"] = s.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *WhepServer) handleWHEPPost(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		allowCORS(w, r)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	offerSDP, err := io.ReadAll(r.Body)
	if err != nil || len(offerSDP) == 0 {
		http.Error(w, "empty offer", http.StatusBadRequest)
		return
	}

	me := webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(&me))
	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := uuid.New().String()
	log := logrus.WithFields(logrus.Fields{"function": "handleWHEPPost", "session": id})

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", "dlisr")
	if err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	go func() {
		// RTCP has to be read for the interceptors to run
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: string(offerSDP)}); err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		_ = pc.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	<-gatherComplete

	if err := s.addSession(id, pc, track); err != nil {
		_ = pc.Close()
		log.WithError(err).Error("Encoder failed to start")
		http.Error(w, fmt.Sprintf("pipeline error: %v", err), http.StatusInternalServerError)
		return
	}
	log.Info("WHEP session created")

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.WithField("state", state.String()).Debug("Connection state changed")
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			s.closeSession(id)
		}
	})

	allowCORS(w, r)
	w.Header().Set("Content-Type", "application/sdp")
	w.Header().Set("Location", "/whep/"+id)
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, pc.LocalDescription().SDP)
}

// addSession registers the session's track and starts the encoder for the
// first session.
func (s *WhepServer) addSession(id string, pc *webrtc.PeerConnection, track SampleWriter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe == nil {
		pipe, err := s.start(PipelineConfig{
			Width:       s.cfg.Width,
			Height:      s.cfg.Height,
			FPS:         s.cfg.FPS,
			BitrateKbps: s.cfg.BitrateKbps,
			FFmpeg:      s.cfg.FFmpeg,
			Source:      s.newSource(),
			Track:       s.bc,
		})
		if err != nil {
			return err
		}
		s.pipe = pipe
	}
	s.sessions[id] = &session{pc: pc, remove: s.bc.Add(track)}
	return nil
}

func (s *WhepServer) handleWHEPResource(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, r)
	id := strings.TrimPrefix(r.URL.Path, "/whep/")
	switch r.Method {
	case http.MethodPatch, http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		s.closeSession(id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// closeSession tears a session down and stops the encoder after the last.
func (s *WhepServer) closeSession(id string) {
	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	var pipe Stopper
	if sess != nil && len(s.sessions) == 0 {
		pipe, s.pipe = s.pipe, nil
	}
	s.mu.Unlock()

	if sess == nil {
		return
	}
	sess.remove()
	_ = sess.pc.Close()
	if pipe != nil {
		pipe.Stop()
	}
	logrus.WithFields(logrus.Fields{"function": "closeSession", "session": id}).Info("WHEP session closed")
}

// Sessions returns the number of open sessions.
func (s *WhepServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close ends every session and the encoder.
func (s *WhepServer) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.closeSession(id)
	}

	s.mu.Lock()
	pipe := s.pipe
	s.pipe = nil
	s.mu.Unlock()
	if pipe != nil {
		pipe.Stop()
	}
	s.bc.Close()
}

func allowCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Expose-Headers", "Location")
}
