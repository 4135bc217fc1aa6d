package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadGambitNeutral reads a Gambit neutral file holding triangles (2D) or tetrahedra (3D)
func ReadGambitNeutral(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseGambitNeutral(file)
}

// ParseGambitNeutral parses Gambit neutral content. Element groups become element tags.
func ParseGambitNeutral(r io.Reader) (*Mesh, error) {
	var (
		scanner      = bufio.NewScanner(r)
		numnp, nelem int
		ndfcd        int
		vertices     [][]float64
		elements     [][]int
		elementIDs   = make(map[int]int)
		tags         map[int]int
		foundHeader  bool
		parseErr     error
		parseFloat   = func(s string) float64 {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil && parseErr == nil {
				parseErr = fmt.Errorf("bad number %q: %w", s, err)
			}
			return v
		}
		parseInt = func(s string) int {
			v, err := strconv.Atoi(s)
			if err != nil && parseErr == nil {
				parseErr = fmt.Errorf("bad integer %q: %w", s, err)
			}
			return v
		}
	)

	// Read until we find the problem size parameters
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "NUMNP") && strings.Contains(line, "NELEM") {
			// Next line contains the actual values
			if scanner.Scan() {
				values := strings.Fields(scanner.Text())
				if len(values) >= 5 {
					numnp = parseInt(values[0])
					nelem = parseInt(values[1])
					ndfcd = parseInt(values[4])
					foundHeader = true
				}
			}
			break
		}
	}
	if !foundHeader {
		return nil, fmt.Errorf("gambit neutral: missing NUMNP/NELEM header")
	}
	if ndfcd != 2 && ndfcd != 3 {
		return nil, fmt.Errorf("gambit neutral: unsupported coordinate dimension %d", ndfcd)
	}
	vertices = make([][]float64, numnp)
	elements = make([][]int, 0, nelem)

	// Continue reading sections
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.Contains(line, "NODAL COORDINATES"):
			for scanner.Scan() {
				line = strings.TrimSpace(scanner.Text())
				if line == "ENDOFSECTION" {
					break
				}
				fields := strings.Fields(line)
				if len(fields) < 1+ndfcd {
					continue
				}
				id := parseInt(fields[0])
				if id < 1 || id > numnp {
					return nil, fmt.Errorf("gambit neutral: node id %d out of range", id)
				}
				x := make([]float64, ndfcd)
				for d := 0; d < ndfcd; d++ {
					x[d] = parseFloat(fields[1+d])
				}
				vertices[id-1] = x
			}

		case strings.Contains(line, "ELEMENTS/CELLS"):
			for scanner.Scan() {
				line = strings.TrimSpace(scanner.Text())
				if line == "ENDOFSECTION" {
					break
				}
				// Format: NE NTYPE NDP NODE1 NODE2 ...
				fields := strings.Fields(line)
				if len(fields) < 3 {
					continue
				}
				var (
					id       = parseInt(fields[0])
					elemType = parseInt(fields[1])
					numNodes = parseInt(fields[2])
				)
				// Only simplices of the mesh dimension: 3 = triangle, 6 = tetrahedron
				if !(ndfcd == 2 && elemType == 3 && numNodes == 3) && !(ndfcd == 3 && elemType == 6 && numNodes == 4) {
					return nil, fmt.Errorf("gambit neutral: element %d has unsupported type %d with %d nodes",
						id, elemType, numNodes)
				}
				if len(fields) < 3+numNodes {
					return nil, fmt.Errorf("gambit neutral: element %d is truncated", id)
				}
				verts := make([]int, numNodes)
				for j := 0; j < numNodes; j++ {
					verts[j] = parseInt(fields[3+j]) - 1 // convert to 0-indexed
				}
				elementIDs[id] = len(elements)
				elements = append(elements, verts)
			}

		case strings.HasPrefix(line, "GROUP:"):
			// Format: GROUP: NGP ELEMENTS: NELGP MATERIAL: MTYP NFLAGS: NFLAGS
			var (
				parts    = strings.Fields(line)
				groupID  int
				numElems int
			)
			for i := 0; i < len(parts)-1; i++ {
				switch parts[i] {
				case "GROUP:":
					groupID = parseInt(parts[i+1])
				case "ELEMENTS:":
					numElems = parseInt(parts[i+1])
				}
			}
			// Skip entity name and flags
			scanner.Scan()
			scanner.Scan()
			if tags == nil {
				tags = make(map[int]int)
			}
			elementsRead := 0
			for elementsRead < numElems && scanner.Scan() {
				line = strings.TrimSpace(scanner.Text())
				if line == "ENDOFSECTION" {
					break
				}
				for _, field := range strings.Fields(line) {
					tags[parseInt(field)] = groupID
					elementsRead++
				}
			}
		}
		if parseErr != nil {
			return nil, fmt.Errorf("gambit neutral: %w", parseErr)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for i, v := range vertices {
		if v == nil {
			return nil, fmt.Errorf("gambit neutral: node %d missing coordinates", i+1)
		}
	}
	m, err := NewMesh(ndfcd, vertices, elements)
	if err != nil {
		return nil, err
	}
	for id, tag := range tags {
		if k, ok := elementIDs[id]; ok {
			m.ElementTags[k] = tag
		}
	}
	return m, nil
}
