package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-synth/pkg/config"
	"github.com/df07/go-scene-synth/pkg/pipeline"
)

var testIntrinsics = [][]float64{
	{616.95214844, 0, 324.23962402},
	{0, 617.11254883, 239.48379517},
	{0, 0, 1},
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(config.Default()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postPipeline(t *testing.T, ts *httptest.Server, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/pipeline", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleSample(t *testing.T) {
	ts := newTestServer(t)

	q := url.Values{}
	q.Set("radius", "2")
	q.Set("mode", "interior")
	q.Set("distance", "0.5")
	q.Set("n", "20")
	q.Set("seed", "7")

	resp, err := http.Get(ts.URL + "/api/sample?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body SampleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "INTERIOR", body.Mode)
	assert.Equal(t, [3]float64{0, 0, 1}, body.SplitVector)
	// (r-h)^2 (2r+h) / 4r^3 with r=2, h=0.5
	assert.InDelta(t, 1.5*1.5*4.5/32, body.Acceptance, 1e-12)

	require.Len(t, body.Points, 20)
	for _, p := range body.Points {
		assert.Greater(t, p[2], 0.5)
		assert.LessOrEqual(t, math.Sqrt(p[0]*p[0]+p[1]*p[1]+p[2]*p[2]), 2.0+1e-9)
	}
}

func TestHandleSample_SameSeedSamePoints(t *testing.T) {
	ts := newTestServer(t)

	get := func() SampleResponse {
		resp, err := http.Get(ts.URL + "/api/sample?n=5&seed=3&split=1,0,0")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body SampleResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	first, second := get(), get()
	assert.Equal(t, first.Points, second.Points)
	for _, p := range first.Points {
		assert.Greater(t, p[0], 0.0)
	}
}

func TestHandleSample_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"bad radius", "radius=abc", http.StatusBadRequest},
		{"radius out of range", "radius=0", http.StatusBadRequest},
		{"unknown mode", "mode=volume", http.StatusBadRequest},
		{"short split", "split=1,2", http.StatusBadRequest},
		{"zero split", "split=0,0,0", http.StatusBadRequest},
		{"distance equals radius", "radius=1&distance=1", http.StatusBadRequest},
		{"too many points", "n=100000", http.StatusBadRequest},
		{"exhausted", "radius=1&distance=0.999999&n=50&maxAttempts=1", http.StatusUnprocessableEntity},
		{"unbounded attempts", "maxAttempts=0&split=1e-170,0,0", http.StatusBadRequest},
		{"nan split", "split=NaN,0,1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/sample?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleSample_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/sample", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandlePipeline(t *testing.T) {
	ts := newTestServer(t)

	resp := postPipeline(t, ts, PipelineRequest{
		OutputDir:   "/tmp/render/",
		MeshPath:    "/data/replica/room0",
		CameraPoses: [][]float64{{0, 0, 2, 0, 0, 0}},
		Intrinsics:  testIntrinsics,
		Resolution:  []int{640, 480},
		LightPoses:  [][]float64{{5, -5, 5, 0, 0, 0}},
		LightEnergy: 1000,
		Samples:     350,
		ColorKey:    "colors",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body PipelineResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	want := []string{
		pipeline.ModuleInitializer,
		pipeline.ModuleReplicaLoader,
		pipeline.ModuleMaterialManipulator,
		pipeline.ModuleLightLoader,
		pipeline.ModuleCameraLoader,
		pipeline.ModuleRgbRenderer,
		pipeline.ModuleLightStateWriter,
		pipeline.ModuleCameraStateWriter,
		pipeline.ModuleHdf5Writer,
	}
	assert.Equal(t, want, body.Modules)

	doc, err := pipeline.ParseDocument([]byte(body.Document))
	require.NoError(t, err)
	assert.Equal(t, want, doc.Names())
	assert.Contains(t, body.Document, "output_dir: /tmp/render/")
	assert.Contains(t, body.Document, "distance_output_key: null")
}

func TestHandlePipeline_SampledCameras(t *testing.T) {
	ts := newTestServer(t)

	resp := postPipeline(t, ts, PipelineRequest{
		CameraRegion: &RegionRequest{
			Count:  3,
			Radius: 1.5,
			Mode:   "SURFACE",
		},
		Intrinsics: testIntrinsics,
		Resolution: []int{640, 480},
		Seed:       11,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body PipelineResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	doc, err := pipeline.ParseDocument([]byte(body.Document))
	require.NoError(t, err)
	require.Equal(t, pipeline.ModuleCameraLoader, doc.Modules[1].Name)

	cfg, ok := doc.Modules[1].Config.(map[string]interface{})
	require.True(t, ok)
	camPoses, ok := cfg["cam_poses"].([]interface{})
	require.True(t, ok)
	assert.Len(t, camPoses, 3)

	require.NotEmpty(t, body.Console)
	assert.Contains(t, body.Console[0].Message, "Sampled 3 poses")
}

func TestHandlePipeline_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		req    any
		status int
	}{
		{
			name: "short pose",
			req: PipelineRequest{
				CameraPoses: [][]float64{{0, 0, 2}},
				Intrinsics:  testIntrinsics,
				Resolution:  []int{640, 480},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "ragged intrinsics",
			req: PipelineRequest{
				CameraPoses: [][]float64{{0, 0, 2, 0, 0, 0}},
				Intrinsics:  [][]float64{{1, 0, 0}, {0, 1}, {0, 0, 1}},
				Resolution:  []int{640, 480},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "missing intrinsics",
			req: PipelineRequest{
				CameraPoses: [][]float64{{0, 0, 2, 0, 0, 0}},
				Resolution:  []int{640, 480},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "bad region",
			req: PipelineRequest{
				CameraRegion: &RegionRequest{Count: 1, Radius: 1, Distance: 2},
				Intrinsics:   testIntrinsics,
				Resolution:   []int{640, 480},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "negative camera count",
			req: PipelineRequest{
				CameraRegion: &RegionRequest{Count: -1, Radius: 1},
				Intrinsics:   testIntrinsics,
				Resolution:   []int{640, 480},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "huge camera count",
			req: PipelineRequest{
				CameraRegion: &RegionRequest{Count: 1 << 62, Radius: 1},
				Intrinsics:   testIntrinsics,
				Resolution:   []int{640, 480},
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			req:    map[string]any{"cameras": 3},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postPipeline(t, ts, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHandlePipeline_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/pipeline")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestParseParams(t *testing.T) {
	q := url.Values{"n": {"12"}, "radius": {"2.5"}, "bad": {"x"}}

	n, err := parseIntParam(q, "n", 1, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = parseIntParam(q, "missing", 7, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parseIntParam(q, "n", 1, 1, 10)
	assert.Error(t, err)

	r, err := parseFloatParam(q, "radius", 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2.5, r)

	_, err = parseFloatParam(q, "bad", 1, 0, 10)
	assert.Error(t, err)

	v, err := parseVec3(" 1, 2 ,3")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v.Z)
}
