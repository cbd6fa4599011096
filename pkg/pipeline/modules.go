package pipeline

// Module names understood by the execution engine
const (
	ModuleInitializer         = "main.Initializer"
	ModuleReplicaLoader       = "loader.ReplicaLoader"
	ModuleMaterialManipulator = "manipulators.MaterialManipulator"
	ModuleCameraLoader        = "camera.CameraLoader"
	ModuleLightLoader         = "lighting.LightLoader"
	ModuleRgbRenderer         = "renderer.RgbRenderer"
	ModuleLightStateWriter    = "writer.LightStateWriter"
	ModuleCameraStateWriter   = "writer.CameraStateWriter"
	ModuleHdf5Writer          = "writer.Hdf5Writer"

	PostprocessTrimChannels = "postprocessing.TrimRedundantChannels"
)

// Naming convention the mesh loader gives to imported materials
const (
	ReplicaMaterialName = "ReplicaMaterial"
	VertexColorLayer    = "Col"
)

// LightTypePoint is the only light type the light loader emits
const LightTypePoint = "POINT"

// InitializerConfig configures the first stage of every document
type InitializerConfig struct {
	Global GlobalConfig `yaml:"global"`
}

// GlobalConfig holds settings shared by all stages
type GlobalConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// ReplicaLoaderConfig points the mesh loader at a dataset directory
type ReplicaLoaderConfig struct {
	DataPath    string `yaml:"data_path"`
	DataSetName string `yaml:"data_set_name"`
}

// MaterialManipulatorConfig selects materials by name and recolors them from a vertex color layer
type MaterialManipulatorConfig struct {
	Selector            Selector `yaml:"selector"`
	ChangeToVertexColor string   `yaml:"cf_change_to_vertex_color"`
}

// Selector picks engine entities through a getter provider
type Selector struct {
	Provider   string            `yaml:"provider"`
	Conditions map[string]string `yaml:"conditions"`
}

// CameraLoaderConfig lists camera poses sharing one set of intrinsics
type CameraLoaderConfig struct {
	CamPoses        []CameraPose     `yaml:"cam_poses"`
	DefaultCamParam CameraIntrinsics `yaml:"default_cam_param"`
}

// CameraPose is one camera location with its Euler rotation
type CameraPose struct {
	Location FlowSeq       `yaml:"location"`
	Rotation RotationValue `yaml:"rotation"`
}

// RotationValue wraps an XYZ Euler rotation
type RotationValue struct {
	Value FlowSeq `yaml:"value"`
}

// CameraIntrinsics holds the row-major flattened K matrix and the image size
type CameraIntrinsics struct {
	CamK        FlowSeq `yaml:"cam_K"`
	ResolutionX int     `yaml:"resolution_x"`
	ResolutionY int     `yaml:"resolution_y"`
}

// LightLoaderConfig lists the lights to create
type LightLoaderConfig struct {
	Lights []Light `yaml:"lights"`
}

// Light is a single light source
type Light struct {
	Type     string  `yaml:"type"`
	Location FlowSeq `yaml:"location"`
	Rotation FlowSeq `yaml:"rotation"`
	Energy   Number  `yaml:"energy"`
}

// RendererConfig requests color output and, when RenderDistance is set, distance output.
// DistanceOutputKey is nil (rendered as null) when distance is disabled.
type RendererConfig struct {
	Samples           int     `yaml:"samples"`
	OutputKey         string  `yaml:"output_key"`
	RenderDistance    bool    `yaml:"render_distance"`
	DistanceOutputKey *string `yaml:"distance_output_key"`
}

// StateWriterConfig selects the attributes a state writer records
type StateWriterConfig struct {
	AttributesToWrite []string `yaml:"attributes_to_write"`
}

// Hdf5WriterConfig maps output keys to postprocessing stages
type Hdf5WriterConfig struct {
	PostprocessingModules map[string][]ModuleRef `yaml:"postprocessing_modules"`
}

// ModuleRef names a postprocessing stage
type ModuleRef struct {
	Module string `yaml:"module"`
}

func initializerModule(outputDir string) Module {
	return Module{
		Name:   ModuleInitializer,
		Config: InitializerConfig{Global: GlobalConfig{OutputDir: outputDir}},
	}
}

func writerModules(writeLightState, writeCameraState bool) []Module {
	var modules []Module
	if writeLightState {
		modules = append(modules, Module{
			Name:   ModuleLightStateWriter,
			Config: StateWriterConfig{AttributesToWrite: []string{"location", "rotation_euler", "energy"}},
		})
	}
	if writeCameraState {
		modules = append(modules, Module{
			Name:   ModuleCameraStateWriter,
			Config: StateWriterConfig{AttributesToWrite: []string{"location", "rotation_euler"}},
		})
	}
	// Depth comes out with redundant channels; trim them before writing
	modules = append(modules, Module{
		Name: ModuleHdf5Writer,
		Config: Hdf5WriterConfig{PostprocessingModules: map[string][]ModuleRef{
			"distance": {{Module: PostprocessTrimChannels}},
		}},
	})
	return modules
}
