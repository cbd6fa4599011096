package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format      string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version     string // Usually "1.0"
	VertexCount int
	FaceCount   int
	VertexProps []PLYProperty
	FaceProps   []PLYProperty

	HasNormals bool
	HasColors  bool
	HasAlpha   bool
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// ReadPLYHeader opens filename and parses only its header
func ReadPLYHeader(filename string) (*PLYHeader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	header, err := ParsePLYHeader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header of %s: %w", filename, err)
	}
	return header, nil
}

// ParsePLYHeader parses a PLY header up to and including "end_header"
func ParsePLYHeader(r io.Reader) (*PLYHeader, error) {
	header := &PLYHeader{
		VertexProps: make([]PLYProperty, 0),
		FaceProps:   make([]PLYProperty, 0),
	}

	scanner := bufio.NewScanner(r)
	var currentElement string
	sawMagic := false
	sawEnd := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !sawMagic {
			if line != "ply" {
				return nil, fmt.Errorf("missing ply magic number")
			}
			sawMagic = true
			continue
		}
		if line == "end_header" {
			sawEnd = true
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}

			currentElement = parts[1]
			switch currentElement {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			}
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %v", err)
			}

			switch currentElement {
			case "vertex":
				header.VertexProps = append(header.VertexProps, prop)
				switch prop.Name {
				case "nx", "ny", "nz":
					header.HasNormals = true
				case "red", "r", "green", "g", "blue", "b":
					header.HasColors = true
				case "alpha", "a":
					header.HasAlpha = true
				}
			case "face":
				header.FaceProps = append(header.FaceProps, prop)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading header: %v", err)
	}
	if !sawMagic {
		return nil, fmt.Errorf("empty PLY file")
	}
	if !sawEnd {
		return nil, fmt.Errorf("header is not terminated by end_header")
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
	}

	return prop, nil
}

// MeshInfo summarizes one mesh of a dataset directory
type MeshInfo struct {
	Path        string `json:"path"`
	VertexCount int    `json:"vertexCount"`
	FaceCount   int    `json:"faceCount"`
	HasColors   bool   `json:"hasColors"`
	Err         string `json:"error,omitempty"`
}

// ScanMeshDir lists the PLY meshes in dir and its immediate subdirectories,
// sorted by path. Files with unreadable headers are reported, not skipped.
func ScanMeshDir(dir string) ([]MeshInfo, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan mesh directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	for _, pattern := range []string{"*.ply", filepath.Join("*", "*.ply")} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan mesh directory: %v", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	meshes := make([]MeshInfo, 0, len(files))
	for _, path := range files {
		mesh := MeshInfo{Path: path}
		header, err := ReadPLYHeader(path)
		if err != nil {
			mesh.Err = err.Error()
		} else {
			mesh.VertexCount = header.VertexCount
			mesh.FaceCount = header.FaceCount
			mesh.HasColors = header.HasColors
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// MissingColors returns the meshes that cannot feed a vertex color remap
func MissingColors(meshes []MeshInfo) []MeshInfo {
	var missing []MeshInfo
	for _, m := range meshes {
		if m.Err != "" || !m.HasColors {
			missing = append(missing, m)
		}
	}
	return missing
}
