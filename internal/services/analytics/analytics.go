// Package analytics implements the event and page-view tracking worker.
package analytics

import (
	"net/http"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/observability"
	"github.com/blackroad/workers/internal/router"
	"github.com/blackroad/workers/internal/services/core"
)

// RecentEventsLimit is how many events /stats returns.
const RecentEventsLimit = 10

// StatsNote is attached to every /stats response.
const StatsNote = "Stats reset on worker restart. Use KV/D1 for persistence."

// Visitor id used when the client address is unknown.
const unknownVisitor = "unknown"

// pixel is a 1x1 transparent GIF.
var pixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

// Pixel returns a copy of the tracking pixel.
func Pixel() []byte {
	return append([]byte(nil), pixel...)
}

// Service is the analytics worker.
type Service struct {
	stats  *Stats
	now    core.Clock
	logger observability.Logger
	desc   core.Descriptor
}

// New creates the analytics service.
func New(cfg config.ServiceConfig, deps core.Deps) *Service {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = config.DefaultMaxEvents
	}
	version := cfg.Version
	if version == "" {
		version = config.DefaultVersion
	}

	return &Service{
		stats:  NewStats(maxEvents),
		now:    deps.Now(),
		logger: deps.Log(),
		desc: core.Descriptor{
			Service: "BlackRoad Analytics",
			Version: version,
			Endpoints: []core.Endpoint{
				{Path: "/track", Method: http.MethodPost, Description: "Track event"},
				{Path: "/pageview", Method: http.MethodPost, Description: "Track page view"},
				{Path: "/stats", Method: http.MethodGet, Description: "Get statistics"},
				{Path: "/pixel.gif", Method: http.MethodGet, Description: "Tracking pixel"},
			},
		},
	}
}

// NewRouter builds the analytics router.
func NewRouter(cfg config.ServiceConfig, deps core.Deps) (*router.Router, *Service, error) {
	svc := New(cfg, deps)
	r := core.NewRouter(cfg, deps, svc.desc)
	if err := svc.Register(r); err != nil {
		return nil, nil, err
	}
	return r, svc, nil
}

// Register binds the service's routes.
func (s *Service) Register(r *router.Router) error {
	routes := []struct {
		method  string
		path    string
		handler router.HandlerFunc
	}{
		{http.MethodGet, "/", s.describe},
		{http.MethodGet, "/analytics", s.describe},
		{router.MethodAny, "/track", s.track},
		{router.MethodAny, "/pageview", s.pageView},
		{http.MethodGet, "/stats", s.snapshot},
		{router.MethodAny, "/pixel.gif", s.pixel},
	}

	for _, rt := range routes {
		if err := r.Register(rt.method, router.NewExactMatcher(rt.path), rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the live counters.
func (s *Service) Stats() *Stats {
	return s.stats
}

func (s *Service) describe(*router.RequestContext) (*router.ResponseEnvelope, error) {
	return router.OK(s.desc), nil
}

type trackResponse struct {
	Success       bool  `json:"success"`
	EventsTracked int64 `json:"eventsTracked"`
}

func (s *Service) track(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	if req.Method != http.MethodPost {
		return router.MethodNotAllowed("Use POST"), nil
	}

	var payload any
	if err := req.DecodeJSON(&payload); err != nil {
		s.logger.WithContext(req.Context()).Debug("rejected event", observability.Error(err))
		return router.BadRequest("Invalid JSON body"), nil
	}

	ev := NewEvent(payload)

	ev["timestamp"] = core.Timestamp(s.now())
	if req.Client.IP != "" {
		ev["ip"] = req.Client.IP
	} else {
		ev["ip"] = nil
	}
	if req.Client.Country != "" {
		ev["country"] = req.Client.Country
	} else {
		delete(ev, "country")
	}

	return router.OK(trackResponse{
		Success:       true,
		EventsTracked: s.stats.Track(ev),
	}), nil
}

type pageViewResponse struct {
	Success        bool  `json:"success"`
	PageViews      int64 `json:"pageViews"`
	UniqueVisitors int   `json:"uniqueVisitors"`
}

func (s *Service) pageView(req *router.RequestContext) (*router.ResponseEnvelope, error) {
	if req.Method != http.MethodPost {
		return router.MethodNotAllowed("Use POST"), nil
	}

	visitor := req.Client.IP
	if visitor == "" {
		visitor = unknownVisitor
	}

	views, unique := s.stats.PageView(visitor)
	return router.OK(pageViewResponse{
		Success:        true,
		PageViews:      views,
		UniqueVisitors: unique,
	}), nil
}

type statsResponse struct {
	PageViews      int64   `json:"pageViews"`
	APICalls       int64   `json:"apiCalls"`
	UniqueVisitors int     `json:"uniqueVisitors"`
	EventsTracked  int64   `json:"eventsTracked"`
	RecentEvents   []Event `json:"recentEvents"`
	Timestamp      string  `json:"timestamp"`
	Note           string  `json:"note"`
}

func (s *Service) snapshot(*router.RequestContext) (*router.ResponseEnvelope, error) {
	snap := s.stats.Snapshot(RecentEventsLimit)
	return router.OK(statsResponse{
		PageViews:      snap.PageViews,
		APICalls:       snap.APICalls,
		UniqueVisitors: snap.UniqueVisitors,
		EventsTracked:  snap.EventsTracked,
		RecentEvents:   snap.RecentEvents,
		Timestamp:      core.Timestamp(s.now()),
		Note:           StatsNote,
	}), nil
}

func (s *Service) pixel(*router.RequestContext) (*router.ResponseEnvelope, error) {
	s.stats.Hit()
	return router.Bytes(http.StatusOK, router.ContentTypeGIF, Pixel()).
		WithHeader("Cache-Control", "no-store, no-cache, must-revalidate"), nil
}
