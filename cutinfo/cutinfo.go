package cutinfo

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/notargets/gocut/field"
	"github.com/notargets/gocut/logger"
	"github.com/notargets/gocut/mesh"
	"github.com/notargets/gocut/utils"
)

var ErrLevelSetEvaluation = errors.New("level set evaluation failed")

// DofProvider maps an element to its degrees of freedom
type DofProvider interface {
	Ndof() int
	ElementDofs(k int) []int
}

/*
CutInformation classifies the entities of a mesh against the zero level of a level set field.
It is read-only between calls to Update, which recompute everything. Update must not run
concurrently with queries.
*/
type CutInformation struct {
	Mesh     *mesh.Mesh
	Policy   ZeroPolicy
	Parallel int
	log      logger.Logger

	updated      bool
	vertexValues []float64

	domOfElement     map[VorB][]DomainType
	cutRatio         map[VorB][]float64
	elementsOfDomain map[VorB]map[DomainType]*bitset.BitSet

	domOfNode          map[mesh.NodeType][]DomainType
	cutRatioOfNode     map[mesh.NodeType][]float64
	nodesOfDomain      map[mesh.NodeType]map[DomainType]*bitset.BitSet
	cutNeighboringNode map[mesh.NodeType]*bitset.BitSet
}

type Option func(*CutInformation)

func WithZeroPolicy(zp ZeroPolicy) Option { return func(ci *CutInformation) { ci.Policy = zp } }

// WithParallelDegree sets the worker count, zero meaning one per CPU
func WithParallelDegree(np int) Option { return func(ci *CutInformation) { ci.Parallel = np } }

func WithLogger(l logger.Logger) Option { return func(ci *CutInformation) { ci.log = l } }

func NewCutInformation(m *mesh.Mesh, opts ...Option) (ci *CutInformation) {
	ci = &CutInformation{Mesh: m}
	for _, opt := range opts {
		opt(ci)
	}
	ci.log = logger.OrDefault(ci.log)
	return
}

// Update evaluates the level set at the mesh vertices and reclassifies every entity
func (ci *CutInformation) Update(levelset field.Evaluator) (err error) {
	var (
		m    = ci.Mesh
		vals = make([]float64, m.NumVertices)
	)
	err = utils.ParallelFor(m.NumVertices, ci.Parallel, func(_, kMin, kMax int, _ *utils.Arena) error {
		for v := kMin; v < kMax; v++ {
			val, err := levelset.Evaluate(m.Vertices[v])
			if err != nil {
				return fmt.Errorf("%w at vertex %d: %w", ErrLevelSetEvaluation, v, err)
			}
			vals[v] = val
		}
		return nil
	})
	if err != nil {
		return
	}
	return ci.UpdateFromVertexValues(vals)
}

// UpdateFromVertexValues reclassifies every entity from level set values given at the mesh vertices
func (ci *CutInformation) UpdateFromVertexValues(vals []float64) (err error) {
	var (
		m   = ci.Mesh
		nci = &CutInformation{
			domOfElement:       make(map[VorB][]DomainType),
			cutRatio:           make(map[VorB][]float64),
			elementsOfDomain:   make(map[VorB]map[DomainType]*bitset.BitSet),
			domOfNode:          make(map[mesh.NodeType][]DomainType),
			cutRatioOfNode:     make(map[mesh.NodeType][]float64),
			nodesOfDomain:      make(map[mesh.NodeType]map[DomainType]*bitset.BitSet),
			cutNeighboringNode: make(map[mesh.NodeType]*bitset.BitSet),
		}
	)
	if len(vals) != m.NumVertices {
		return fmt.Errorf("%w: %d vertex values for %d vertices", ErrLevelSetEvaluation, len(vals), m.NumVertices)
	}
	if utils.IsNan(vals) {
		return fmt.Errorf("%w: NaN vertex value", ErrLevelSetEvaluation)
	}
	for _, vb := range AllVorB {
		var (
			n     int
			verts func(i int) []int
		)
		switch vb {
		case Volume:
			n, verts = m.NumElements, func(i int) []int { return m.Elements[i] }
		case Boundary:
			n, verts = len(m.BoundaryElements), m.BoundaryElementVertices
		}
		if nci.domOfElement[vb], nci.cutRatio[vb], err = ci.classify(vals, n, verts); err != nil {
			return
		}
		nci.elementsOfDomain[vb] = domainSets(nci.domOfElement[vb])
	}
	for _, nt := range mesh.AllNodeTypes {
		n := m.NumNodes(nt)
		verts := func(i int) []int { return m.NodeVertices(nt, i) }
		if nci.domOfNode[nt], nci.cutRatioOfNode[nt], err = ci.classify(vals, n, verts); err != nil {
			return
		}
		nci.nodesOfDomain[nt] = domainSets(nci.domOfNode[nt])
		cut := bitset.New(uint(n))
		ifElements := nci.elementsOfDomain[Volume][IF]
		for k, ok := ifElements.NextSet(0); ok; k, ok = ifElements.NextSet(k + 1) {
			for _, node := range m.ElementNodes(nt, int(k)) {
				cut.Set(uint(node))
			}
		}
		nci.cutNeighboringNode[nt] = cut
	}

	ci.vertexValues = append([]float64(nil), vals...)
	ci.domOfElement = nci.domOfElement
	ci.cutRatio = nci.cutRatio
	ci.elementsOfDomain = nci.elementsOfDomain
	ci.domOfNode = nci.domOfNode
	ci.cutRatioOfNode = nci.cutRatioOfNode
	ci.nodesOfDomain = nci.nodesOfDomain
	ci.cutNeighboringNode = nci.cutNeighboringNode
	ci.updated = true

	ci.log.Debug("cut information updated",
		"policy", ci.Policy,
		"neg", nci.elementsOfDomain[Volume][NEG].Count(),
		"pos", nci.elementsOfDomain[Volume][POS].Count(),
		"if", nci.elementsOfDomain[Volume][IF].Count())
	return
}

// classify computes the DomainType and cut ratio of n entities in parallel, each from its own vertices
func (ci *CutInformation) classify(vals []float64, n int, verts func(i int) []int) (dom []DomainType, ratio []float64, err error) {
	var (
		m = ci.Mesh
	)
	dom = make([]DomainType, n)
	ratio = make([]float64, n)
	err = utils.ParallelFor(n, ci.Parallel, func(_, kMin, kMax int, heap *utils.Arena) error {
		for i := kMin; i < kMax; i++ {
			heap.Reset()
			var (
				vs  = verts(i)
				ev  = heap.Alloc(len(vs))
				pts = heap.AllocPoints(len(vs), m.Dim)
			)
			for j, v := range vs {
				ev[j] = vals[v]
			}
			dom[i] = ci.Policy.Classify(ev)
			switch dom[i] {
			case NEG:
				ratio[i] = 1
			case POS:
				ratio[i] = 0
			case IF:
				ratio[i] = CutRatio(ev, m.Coordinates(vs, pts), heap)
			}
		}
		return nil
	})
	return
}

func domainSets(dom []DomainType) (sets map[DomainType]*bitset.BitSet) {
	sets = make(map[DomainType]*bitset.BitSet, len(AllDomainTypes))
	for _, dt := range AllDomainTypes {
		sets[dt] = bitset.New(uint(len(dom)))
	}
	for i, dt := range dom {
		sets[dt].Set(uint(i))
	}
	return
}

func (ci *CutInformation) mustBeUpdated() {
	if !ci.updated {
		panic("cut information queried before Update")
	}
}

// VertexValues returns the level set values at the vertices from the last Update
func (ci *CutInformation) VertexValues() []float64 {
	ci.mustBeUpdated()
	return ci.vertexValues
}

func (ci *CutInformation) DomainTypeOfElement(id ElementId) DomainType {
	ci.mustBeUpdated()
	return ci.domOfElement[id.VB][id.Nr]
}

func (ci *CutInformation) CutRatioOfElement(id ElementId) float64 {
	ci.mustBeUpdated()
	return ci.cutRatio[id.VB][id.Nr]
}

// GetCutRatios returns the cut ratio of every element of kind vb. The result must not be modified.
func (ci *CutInformation) GetCutRatios(vb VorB) []float64 {
	ci.mustBeUpdated()
	return ci.cutRatio[vb]
}

// GetElementsOfDomainType returns the elements of kind vb classified dt. The result must not be modified.
func (ci *CutInformation) GetElementsOfDomainType(dt DomainType, vb VorB) *bitset.BitSet {
	ci.mustBeUpdated()
	return ci.elementsOfDomain[vb][dt]
}

// GetElementsOfDomainTypes returns a new set of the elements of kind vb classified as any of dts
func (ci *CutInformation) GetElementsOfDomainTypes(vb VorB, dts ...DomainType) (set *bitset.BitSet) {
	ci.mustBeUpdated()
	set = bitset.New(uint(len(ci.domOfElement[vb])))
	for _, dt := range dts {
		set.InPlaceUnion(ci.elementsOfDomain[vb][dt])
	}
	return
}

// GetFacetsOfDomainType returns the facets classified dt. The result must not be modified.
func (ci *CutInformation) GetFacetsOfDomainType(dt DomainType) *bitset.BitSet {
	return ci.GetNodesOfDomainType(dt, mesh.NodeFacet)
}

func (ci *CutInformation) DomainTypeOfNode(nt mesh.NodeType, nr int) DomainType {
	ci.mustBeUpdated()
	return ci.domOfNode[nt][nr]
}

func (ci *CutInformation) CutRatioOfNode(nt mesh.NodeType, nr int) float64 {
	ci.mustBeUpdated()
	return ci.cutRatioOfNode[nt][nr]
}

// GetNodesOfDomainType returns the nodes of type nt classified dt. The result must not be modified.
func (ci *CutInformation) GetNodesOfDomainType(dt DomainType, nt mesh.NodeType) *bitset.BitSet {
	ci.mustBeUpdated()
	return ci.nodesOfDomain[nt][dt]
}

// GetCutNeighboringNodes returns the nodes of type nt that belong to an IF volume element
func (ci *CutInformation) GetCutNeighboringNodes(nt mesh.NodeType) *bitset.BitSet {
	ci.mustBeUpdated()
	return ci.cutNeighboringNode[nt]
}

/*
GetFacetsWithNeighborTypes returns the facets whose adjacent elements e1, e2 satisfy
a(e1) op b(e2) or a(e2) op b(e1), where a tests membership in setA, b in setB, and op is AND
or OR. A missing neighbour (boundary facet) tests as defaultA / defaultB.
*/
func (ci *CutInformation) GetFacetsWithNeighborTypes(setA, setB *bitset.BitSet, defaultA, defaultB, useAnd bool) (facets *bitset.BitSet) {
	var (
		m = ci.Mesh
	)
	test := func(set *bitset.BitSet, def bool, e int) bool {
		if e < 0 {
			return def
		}
		return set.Test(uint(e))
	}
	combine := func(a, b bool) bool {
		if useAnd {
			return a && b
		}
		return a || b
	}
	facets = bitset.New(uint(m.NumFacets))
	for f, fe := range m.FacetElements {
		var (
			a1, b1 = test(setA, defaultA, fe[0]), test(setB, defaultB, fe[0])
			a2, b2 = test(setA, defaultA, fe[1]), test(setB, defaultB, fe[1])
		)
		if combine(a1, b2) || combine(a2, b1) {
			facets.Set(uint(f))
		}
	}
	return
}

// GetElementsWithNeighborFacets returns the volume elements incident to at least one facet in facets
func (ci *CutInformation) GetElementsWithNeighborFacets(facets *bitset.BitSet) (elements *bitset.BitSet) {
	var (
		m = ci.Mesh
	)
	elements = bitset.New(uint(m.NumElements))
	for f, ok := facets.NextSet(0); ok; f, ok = facets.NextSet(f + 1) {
		for _, k := range m.FacetElements[f] {
			if k >= 0 {
				elements.Set(uint(k))
			}
		}
	}
	return
}

// GetDofsOfElements returns the union of the dofs of the elements in elements
func (ci *CutInformation) GetDofsOfElements(space DofProvider, elements *bitset.BitSet) (dofs *bitset.BitSet) {
	dofs = bitset.New(uint(space.Ndof()))
	for k, ok := elements.NextSet(0); ok; k, ok = elements.NextSet(k + 1) {
		for _, d := range space.ElementDofs(int(k)) {
			dofs.Set(uint(d))
		}
	}
	return
}
