/*
Package server serves packed data tiles from an MBTiles set over HTTP so
map clients can fetch tiles and the codec descriptor without touching the
database directly.
*/
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb/maptile"

	"github.com/bward/datatiles/mbtiles"
)

// Server serves one tileset.
type Server struct {
	ts        *mbtiles.Reader
	logger    *log.Logger
	startTime time.Time
}

// New returns a server over the given tileset.
func New(ts *mbtiles.Reader, logger *log.Logger) *Server {
	return &Server{
		ts:        ts,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Router returns the HTTP handler for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.getHealth)
	r.Get("/metadata", s.getMetadata)
	r.Get("/tiles/{z}/{x}/{y}.png", s.getTile)

	return r
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"uptime": uptime,
	}); err != nil {
		s.logger.Printf("encoding health response: %v\n", err)
	}
}

func (s *Server) getMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.ts.Metadata()
	if err != nil {
		s.logger.Printf("reading metadata: %v\n", err)
		http.Error(w, "reading metadata", http.StatusInternalServerError)
		return
	}

	encoded, ok := meta[mbtiles.EncodingKey]
	if !ok {
		http.Error(w, "tileset has no encoding descriptor", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := w.Write([]byte(encoded)); err != nil {
		s.logger.Printf("writing metadata response: %v\n", err)
	}
}

func (s *Server) getTile(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTile(chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "y"))
	if !ok {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}

	data, err := s.ts.Tile(t)
	if err != nil {
		s.logger.Printf("reading tile %d/%d/%d: %v\n", t.Z, t.X, t.Y, err)
		http.Error(w, "reading tile", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := w.Write(data); err != nil {
		s.logger.Printf("writing tile %d/%d/%d: %v\n", t.Z, t.X, t.Y, err)
	}
}

func parseTile(zs, xs, ys string) (maptile.Tile, bool) {
	z, err := strconv.ParseUint(zs, 10, 32)
	if err != nil || z > 30 {
		return maptile.Tile{}, false
	}
	x, err := strconv.ParseUint(xs, 10, 32)
	if err != nil {
		return maptile.Tile{}, false
	}
	y, err := strconv.ParseUint(ys, 10, 32)
	if err != nil {
		return maptile.Tile{}, false
	}

	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	if uint64(x) >= 1<<z || uint64(y) >= 1<<z {
		return maptile.Tile{}, false
	}
	return t, true
}
