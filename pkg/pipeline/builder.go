package pipeline

import (
	"bufio"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-scene-synth/pkg/core"
)

// DefaultInstallPath is the engine install location used when Options leaves it empty
const DefaultInstallPath = "/home/<env:USER>/blender/"

// PoseLen is the number of values in a pose: location xyz then Euler rotation xyz
const PoseLen = 6

// Options configures a Builder. The write flags are fixed for the builder's lifetime.
type Options struct {
	OutputDir        string
	InstallPath      string
	WriteCameraState bool
	WriteLightState  bool
	Logger           core.Logger
}

// DefaultOptions writes both camera and light state
func DefaultOptions(outputDir string) Options {
	return Options{
		OutputDir:        outputDir,
		InstallPath:      DefaultInstallPath,
		WriteCameraState: true,
		WriteLightState:  true,
	}
}

// Builder assembles a Document one stage at a time.
// It is not safe for concurrent use.
type Builder struct {
	opts      Options
	logger    core.Logger
	doc       Document
	finalized bool
}

// NewBuilder creates a builder whose document holds only the initializer
func NewBuilder(opts Options) *Builder {
	if opts.InstallPath == "" {
		opts.InstallPath = DefaultInstallPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	b := &Builder{opts: opts, logger: logger}
	b.Reset()
	return b
}

// Reset discards every stage and starts a fresh document
func (b *Builder) Reset() {
	b.doc = Document{
		Version: DocumentVersion,
		Setup:   Setup{InstallPath: b.opts.InstallPath},
		Modules: []Module{initializerModule(b.opts.OutputDir)},
	}
	b.finalized = false
}

// Document returns a snapshot of the current document. Opaque configs added
// with AddModule are copied; typed configs must be treated as read-only.
func (b *Builder) Document() Document {
	doc := b.doc
	doc.Modules = make([]Module, len(b.doc.Modules))
	for i, m := range b.doc.Modules {
		doc.Modules[i] = Module{Name: m.Name, Config: copyConfig(m.Config)}
	}
	return doc
}

// Finalized reports whether writers have been appended
func (b *Builder) Finalized() bool { return b.finalized }

func (b *Builder) appendModules(op string, modules ...Module) error {
	if b.finalized {
		return &Error{Kind: ErrFinalized, Op: op}
	}
	b.doc.Modules = append(b.doc.Modules, modules...)
	return nil
}

// AddMeshLoader loads the dataset at path and recolors its materials from per-vertex colors.
// The two stages always come as a pair.
func (b *Builder) AddMeshLoader(path string) error {
	const op = "add mesh loader"
	if path == "" {
		return invalidf(op, "data path is empty")
	}
	return b.appendModules(op,
		Module{
			Name:   ModuleReplicaLoader,
			Config: ReplicaLoaderConfig{DataPath: path},
		},
		Module{
			Name: ModuleMaterialManipulator,
			Config: MaterialManipulatorConfig{
				Selector: Selector{
					Provider:   "getter.Material",
					Conditions: map[string]string{"name": ReplicaMaterialName},
				},
				ChangeToVertexColor: VertexColorLayer,
			},
		},
	)
}

// AddCameraLoader adds one camera per pose, sharing the intrinsics K (3x3) and
// resolution [width, height].
func (b *Builder) AddCameraLoader(poses [][]float64, intrinsics mat.Matrix, resolution []int) error {
	const op = "add camera loader"
	if err := validatePoses(op, poses); err != nil {
		return err
	}
	camK, err := flattenIntrinsics(op, intrinsics)
	if err != nil {
		return err
	}
	if len(resolution) != 2 {
		return invalidf(op, "resolution needs 2 values (width, height), got %d", len(resolution))
	}
	if resolution[0] <= 0 || resolution[1] <= 0 {
		return invalidf(op, "resolution must be positive, got %dx%d", resolution[0], resolution[1])
	}

	cams := make([]CameraPose, len(poses))
	for i, pose := range poses {
		cams[i] = CameraPose{
			Location: FlowSeq(append([]float64(nil), pose[:3]...)),
			Rotation: RotationValue{Value: FlowSeq(append([]float64(nil), pose[3:]...))},
		}
	}

	return b.appendModules(op, Module{
		Name: ModuleCameraLoader,
		Config: CameraLoaderConfig{
			CamPoses: cams,
			DefaultCamParam: CameraIntrinsics{
				CamK:        camK,
				ResolutionX: resolution[0],
				ResolutionY: resolution[1],
			},
		},
	})
}

// AddLightLoader adds one point light per pose, all with the same energy
func (b *Builder) AddLightLoader(poses [][]float64, energy float64) error {
	const op = "add light loader"
	if err := validatePoses(op, poses); err != nil {
		return err
	}
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return invalidf(op, "energy must be finite, got %v", energy)
	}

	lights := make([]Light, len(poses))
	for i, pose := range poses {
		lights[i] = Light{
			Type:     LightTypePoint,
			Location: FlowSeq(append([]float64(nil), pose[:3]...)),
			Rotation: FlowSeq(append([]float64(nil), pose[3:]...)),
			Energy:   Number(energy),
		}
	}

	return b.appendModules(op, Module{
		Name:   ModuleLightLoader,
		Config: LightLoaderConfig{Lights: lights},
	})
}

// AddRenderer requests color output under colorKey. A nil depthKey turns
// distance rendering off entirely.
func (b *Builder) AddRenderer(samples int, colorKey string, depthKey *string) error {
	const op = "add renderer"
	if samples <= 0 {
		return invalidf(op, "samples must be positive, got %d", samples)
	}
	if colorKey == "" {
		return invalidf(op, "color output key is empty")
	}

	cfg := RendererConfig{
		Samples:   samples,
		OutputKey: colorKey,
	}
	if depthKey != nil {
		key := *depthKey
		cfg.RenderDistance = true
		cfg.DistanceOutputKey = &key
	}
	return b.appendModules(op, Module{Name: ModuleRgbRenderer, Config: cfg})
}

// AddModule appends an opaque stage. Maps and slices in config are copied, so
// later changes by the caller do not reach the document.
func (b *Builder) AddModule(name string, config any) error {
	const op = "add module"
	if name == "" {
		return invalidf(op, "module name is empty")
	}
	if config == nil {
		config = map[string]any{}
	}
	return b.appendModules(op, Module{Name: name, Config: copyConfig(config)})
}

// Marshal serializes the current document without appending writers
func (b *Builder) Marshal() ([]byte, error) {
	return b.doc.Marshal()
}

// Seal appends the writer stages (once per document) and serializes the
// result without persisting it. A failed encoding leaves the builder unchanged.
func (b *Builder) Seal() ([]byte, error) {
	if b.finalized {
		return b.doc.Marshal()
	}

	sealed := b.Document()
	sealed.Modules = append(sealed.Modules, writerModules(b.opts.WriteLightState, b.opts.WriteCameraState)...)
	data, err := sealed.Marshal()
	if err != nil {
		return nil, err
	}
	b.doc = sealed
	b.finalized = true
	return data, nil
}

// Finalize appends the writer stages, serializes the document, writes it to
// outputPath and returns the serialized text.
//
// Writers are appended once per document: calling Finalize again before Reset
// re-writes the same document.
func (b *Builder) Finalize(outputPath string) (string, error) {
	data, err := b.Seal()
	if err != nil {
		return "", err
	}
	if err := writeDocument(outputPath, data); err != nil {
		return "", err
	}

	b.logger.Printf("Wrote pipeline with %d modules to %s\n", len(b.doc.Modules), outputPath)
	return string(data), nil
}

// writeDocument writes data through a buffered writer. The file is closed on
// every path and a failed close is reported when nothing else failed.
func writeDocument(path string, data []byte) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return resourceError("create", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = resourceError("close", path, cerr)
		}
	}()

	w := bufio.NewWriter(file)
	if _, err := w.Write(data); err != nil {
		return resourceError("write", path, err)
	}
	if err := w.Flush(); err != nil {
		return resourceError("flush", path, err)
	}
	return nil
}

func validatePoses(op string, poses [][]float64) error {
	for i, pose := range poses {
		if len(pose) != PoseLen {
			return invalidf(op, "pose %d has %d values, want %d", i, len(pose), PoseLen)
		}
		for j, v := range pose {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalidf(op, "pose %d value %d is not finite", i, j)
			}
		}
	}
	return nil
}

// flattenIntrinsics returns K in row-major order
func flattenIntrinsics(op string, k mat.Matrix) (FlowSeq, error) {
	if k == nil {
		return nil, invalidf(op, "intrinsic matrix is required")
	}
	rows, cols := k.Dims()
	if rows != 3 || cols != 3 {
		return nil, invalidf(op, "intrinsic matrix must be 3x3, got %dx%d", rows, cols)
	}
	flat := make(FlowSeq, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			flat = append(flat, k.At(i, j))
		}
	}
	return flat, nil
}

// NewIntrinsics builds a pinhole camera matrix from focal lengths and principal point
func NewIntrinsics(fx, fy, cx, cy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		fx, 0, cx,
		0, fy, cy,
		0, 0, 1,
	})
}

// copyConfig deep-copies the generic containers an opaque config is built from.
// Other values are returned as is.
func copyConfig(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyConfig(e)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, e := range t {
			out[k] = copyConfig(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyConfig(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case []float64:
		return append([]float64(nil), t...)
	case FlowSeq:
		return append(FlowSeq(nil), t...)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
