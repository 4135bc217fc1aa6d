package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Gmsh element types and their dimension: simplices we keep, and cells we cannot represent
var (
	gmshSimplex = map[int]int{
		2: 2, // 3-node triangle
		4: 3, // 4-node tetrahedron
	}
	gmshUnsupported = map[int]int{
		3:  2, // quadrangle
		5:  3, // hexahedron
		6:  3, // prism
		7:  3, // pyramid
		9:  2, // 6-node triangle
		10: 2, // 9-node quadrangle
		11: 3, // 10-node tetrahedron
		16: 2, // 8-node quadrangle
		17: 3, // 20-node hexahedron
		20: 2, // 9-node triangle
		21: 2, // 10-node triangle
	}
)

// ReadGmsh22 reads an ASCII Gmsh MSH file of format version 2.2
func ReadGmsh22(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseGmsh22(file)
}

/*
ParseGmsh22 parses ASCII Gmsh 2.2 content. The mesh dimension is that of the highest dimensional
simplices present; lower dimensional elements (points, lines, boundary triangles of a tet mesh)
are skipped. The first element tag, the physical group, becomes the element tag.
*/
func ParseGmsh22(r io.Reader) (*Mesh, error) {
	var (
		scanner   = bufio.NewScanner(r)
		vertices  [][]float64
		nodeIndex = make(map[int]int)
		cells     = map[int][][]int{}
		tags      = map[int][]int{}
		highest   int
		badDim    = map[int]int{} // Dimension to an unsupported element type seen in it
	)
	skipTo := func(end string) {
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == end {
				return
			}
		}
	}
	count := func(section string) (n int, err error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("gmsh: unexpected EOF in %s", section)
		}
		if n, err = strconv.Atoi(strings.TrimSpace(scanner.Text())); err != nil {
			err = fmt.Errorf("gmsh: bad %s count: %w", section, err)
		}
		return
	}

	for scanner.Scan() {
		switch line := strings.TrimSpace(scanner.Text()); line {
		case "$MeshFormat":
			if !scanner.Scan() {
				return nil, fmt.Errorf("gmsh: unexpected EOF in MeshFormat")
			}
			parts := strings.Fields(scanner.Text())
			if len(parts) < 3 {
				return nil, fmt.Errorf("gmsh: invalid MeshFormat line %q", scanner.Text())
			}
			if !strings.HasPrefix(parts[0], "2.") {
				return nil, fmt.Errorf("gmsh: format version %s, only 2.2 is supported", parts[0])
			}
			if parts[1] != "0" {
				return nil, fmt.Errorf("gmsh: binary files are not supported")
			}
			skipTo("$EndMeshFormat")

		case "$Nodes":
			n, err := count("Nodes")
			if err != nil {
				return nil, err
			}
			vertices = make([][]float64, 0, n)
			for i := 0; i < n; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("gmsh: unexpected EOF reading nodes")
				}
				parts := strings.Fields(scanner.Text())
				if len(parts) < 4 {
					return nil, fmt.Errorf("gmsh: invalid node line %q", scanner.Text())
				}
				id, err := strconv.Atoi(parts[0])
				if err != nil {
					return nil, fmt.Errorf("gmsh: bad node id %q: %w", parts[0], err)
				}
				x := make([]float64, 3)
				for d := range x {
					if x[d], err = strconv.ParseFloat(parts[1+d], 64); err != nil {
						return nil, fmt.Errorf("gmsh: node %d: %w", id, err)
					}
				}
				nodeIndex[id] = len(vertices)
				vertices = append(vertices, x)
			}
			skipTo("$EndNodes")

		case "$Elements":
			n, err := count("Elements")
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("gmsh: unexpected EOF reading elements")
				}
				parts := strings.Fields(scanner.Text())
				if len(parts) < 3 {
					return nil, fmt.Errorf("gmsh: invalid element line %q", scanner.Text())
				}
				var ints = make([]int, len(parts))
				for j, p := range parts {
					if ints[j], err = strconv.Atoi(p); err != nil {
						return nil, fmt.Errorf("gmsh: element line %q: %w", scanner.Text(), err)
					}
				}
				elemID, elemType, numTags := ints[0], ints[1], ints[2]
				if dim, ok := gmshUnsupported[elemType]; ok {
					badDim[dim] = elemType
					continue
				}
				dim, ok := gmshSimplex[elemType]
				if !ok {
					continue
				}
				nodes := ints[3+numTags:]
				if len(nodes) != dim+1 {
					return nil, fmt.Errorf("gmsh: element %d has %d nodes, need %d", elemID, len(nodes), dim+1)
				}
				verts := make([]int, dim+1)
				for j, id := range nodes {
					if verts[j], ok = nodeIndex[id]; !ok {
						return nil, fmt.Errorf("gmsh: element %d references unknown node %d", elemID, id)
					}
				}
				var tag int
				if numTags > 0 {
					tag = ints[3]
				}
				cells[dim] = append(cells[dim], verts)
				tags[dim] = append(tags[dim], tag)
				if dim > highest {
					highest = dim
				}
			}
			skipTo("$EndElements")

		case "$PhysicalNames", "$Periodic", "$NodeData", "$ElementData", "$ElementNodeData":
			skipTo("$End" + line[1:])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if highest == 0 {
		return nil, fmt.Errorf("gmsh: no triangles or tetrahedra")
	}
	if t, ok := badDim[highest]; ok {
		return nil, fmt.Errorf("gmsh: unsupported element type %d in a %dD mesh", t, highest)
	}
	m, err := NewMesh(highest, vertices, cells[highest])
	if err != nil {
		return nil, err
	}
	copy(m.ElementTags, tags[highest])
	return m, nil
}
