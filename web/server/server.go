package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-scene-synth/pkg/config"
	"github.com/df07/go-scene-synth/pkg/core"
	"github.com/df07/go-scene-synth/pkg/pipeline"
	"github.com/df07/go-scene-synth/pkg/poses"
	"github.com/df07/go-scene-synth/pkg/sampler"
)

// Request limits. Sampling always runs bounded inside a handler.
const (
	maxPointsPerRequest = 10000
	defaultMaxAttempts  = 100000
)

// Server handles web requests for pipeline generation
type Server struct {
	port int
	cfg  config.Config
}

// NewServer creates a new web server
func NewServer(cfg config.Config) *Server {
	return &Server{port: cfg.Port, cfg: cfg}
}

// SampleResponse lists sampled points and the region's acceptance probability
type SampleResponse struct {
	Points      [][3]float64 `json:"points"`
	Acceptance  float64      `json:"acceptance"`
	Mode        string       `json:"mode"`
	SplitVector [3]float64   `json:"splitVector"`
}

// RegionRequest describes a part sphere to sample camera poses from
type RegionRequest struct {
	Count       int         `json:"count"`
	Center      [3]float64  `json:"center"`
	Radius      float64     `json:"radius"`
	Mode        string      `json:"mode"`
	Distance    float64     `json:"distance"`
	Split       *[3]float64 `json:"split,omitempty"`
	MaxAttempts int         `json:"maxAttempts"`
}

// PipelineRequest is the JSON body of POST /api/pipeline
type PipelineRequest struct {
	OutputDir    string         `json:"outputDir"`
	MeshPath     string         `json:"meshPath"`
	CameraPoses  [][]float64    `json:"cameraPoses"`
	CameraRegion *RegionRequest `json:"cameraRegion,omitempty"`
	Intrinsics   [][]float64    `json:"intrinsics"`
	Resolution   []int          `json:"resolution"`
	LightPoses   [][]float64    `json:"lightPoses"`
	LightEnergy  float64        `json:"lightEnergy"`
	Samples      int            `json:"samples"`
	ColorKey     string         `json:"colorKey"`
	DepthKey     *string        `json:"depthKey"`
	Seed         int64          `json:"seed"`
}

// PipelineResponse carries the serialized document and the generator's console output
type PipelineResponse struct {
	Document string           `json:"document"`
	Modules  []string         `json:"modules"`
	Console  []ConsoleMessage `json:"console"`
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/sample", s.handleSample)
	mux.HandleFunc("/api/pipeline", s.handlePipeline)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSample samples points from a part sphere described by query parameters
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	q := r.URL.Query()
	radius, err := parseFloatParam(q, "radius", 1.0, 1e-9, 1e6)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	distance, err := parseFloatParam(q, "distance", 0.0, 0.0, 1e6)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := parseIntParam(q, "n", 1, 1, maxPointsPerRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxAttempts, err := parseIntParam(q, "maxAttempts", defaultMaxAttempts, 1, 10000000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seed, err := parseIntParam(q, "seed", int(s.cfg.Seed), 0, int(^uint32(0)>>1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode := core.SphereSurface
	if m := q.Get("mode"); m != "" {
		if mode, err = core.ParseSphereMode(m); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	var split *core.Vec3
	if raw := q.Get("split"); raw != "" {
		v, err := parseVec3(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid split: %v", err))
			return
		}
		split = &v
	}

	region, err := sampler.NewPartSphere(sampler.PartSphereConfig{
		Radius:              radius,
		Mode:                mode,
		SplitVector:         split,
		DistanceAboveCenter: distance,
		MaxAttempts:         maxAttempts,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	points, err := region.SampleN(core.NewSeededSampler(int64(seed)), n)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := SampleResponse{
		Points:     make([][3]float64, len(points)),
		Acceptance: region.AcceptanceProbability(),
		Mode:       mode.String(),
	}
	for i, p := range points {
		resp.Points[i] = [3]float64{p.X, p.Y, p.Z}
	}
	sv := region.SplitVector()
	resp.SplitVector = [3]float64{sv.X, sv.Y, sv.Z}

	writeJSON(w, http.StatusOK, resp)
}

// handlePipeline assembles a pipeline document from a JSON request. Nothing is written to disk.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req PipelineRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan := make(chan ConsoleMessage, 64)
	logger := NewWebLogger(uuid.NewString(), consoleChan)

	resp, err := s.buildPipeline(req, logger)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	close(consoleChan)
	for msg := range consoleChan {
		resp.Console = append(resp.Console, msg)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) buildPipeline(req PipelineRequest, logger core.Logger) (*PipelineResponse, error) {
	opts := s.cfg.BuilderOptions()
	if req.OutputDir != "" {
		opts.OutputDir = req.OutputDir
	}
	opts.Logger = logger
	builder := pipeline.NewBuilder(opts)

	if req.MeshPath != "" {
		if err := builder.AddMeshLoader(req.MeshPath); err != nil {
			return nil, err
		}
	}
	if len(req.LightPoses) > 0 {
		if err := builder.AddLightLoader(req.LightPoses, req.LightEnergy); err != nil {
			return nil, err
		}
	}

	cameraPoses := req.CameraPoses
	if req.CameraRegion != nil {
		sampled, err := sampleCameraPoses(*req.CameraRegion, req.Seed, logger)
		if err != nil {
			return nil, err
		}
		cameraPoses = append(cameraPoses, sampled...)
	}
	if len(cameraPoses) > 0 || req.Intrinsics != nil {
		k, err := denseFromRows(req.Intrinsics)
		if err != nil {
			return nil, err
		}
		if err := builder.AddCameraLoader(cameraPoses, k, req.Resolution); err != nil {
			return nil, err
		}
	}

	if req.Samples > 0 {
		colorKey := req.ColorKey
		if colorKey == "" {
			colorKey = "colors"
		}
		if err := builder.AddRenderer(req.Samples, colorKey, req.DepthKey); err != nil {
			return nil, err
		}
	}

	data, err := builder.Seal()
	if err != nil {
		return nil, err
	}
	return &PipelineResponse{
		Document: string(data),
		Modules:  builder.Document().Names(),
	}, nil
}

func sampleCameraPoses(rr RegionRequest, seed int64, logger core.Logger) ([][]float64, error) {
	if rr.Count < 0 || rr.Count > maxPointsPerRequest {
		return nil, fmt.Errorf("%w: camera count must be between 0 and %d, got %d",
			sampler.ErrConfiguration, maxPointsPerRequest, rr.Count)
	}
	mode := core.SphereSurface
	if rr.Mode != "" {
		m, err := core.ParseSphereMode(rr.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sampler.ErrConfiguration, err)
		}
		mode = m
	}
	cfg := sampler.PartSphereConfig{
		Center:              core.NewVec3(rr.Center[0], rr.Center[1], rr.Center[2]),
		Radius:              rr.Radius,
		Mode:                mode,
		DistanceAboveCenter: rr.Distance,
		MaxAttempts:         rr.MaxAttempts,
	}
	if rr.Split != nil {
		v := core.NewVec3(rr.Split[0], rr.Split[1], rr.Split[2])
		cfg.SplitVector = &v
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	region, err := sampler.NewPartSphere(cfg)
	if err != nil {
		return nil, err
	}
	gen := poses.NewGenerator(region)
	gen.Logger = logger
	sampled, err := gen.Generate(core.NewSeededSampler(seed), rr.Count)
	if err != nil {
		return nil, err
	}
	return poses.Values(sampled), nil
}

// denseFromRows converts a JSON matrix. Shape checks beyond "rectangular" are left to the builder.
func denseFromRows(rows [][]float64) (mat.Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: intrinsics row %d has %d values, want %d", pipeline.ErrValidation, i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(rows), cols, flat), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrValidation),
		errors.Is(err, sampler.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, sampler.ErrSamplingExhausted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseVec3 parses "x,y,z"
func parseVec3(raw string) (core.Vec3, error) {
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, err
		}
		values = append(values, v)
	}
	return core.Vec3FromSlice(values)
}
