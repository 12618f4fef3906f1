package remesh

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
	"github.com/KnightxMare/blender/equeue"
	"github.com/KnightxMare/blender/spatial"
)

// Mode selects which phases a single UpdateTopology call runs (spec 4.9).
// It is distinct from equeue.Mode, which only steers queue construction.
type Mode uint32

const (
	ModeCollapse Mode = 1 << iota
	ModeSubdivide
	ModeCleanup
)

// ErrCorruptLeafIndex is the one fatal condition named in spec section 7: a
// leaf the caller supplied is no longer recognized by the hierarchy. Every
// other inconsistency this core finds is a local skip, never an abort.
var ErrCorruptLeafIndex = errors.New("remesh: corrupt leaf index")

// Params bundles one UpdateTopology call's inputs (spec 4.9 and section 6).
// Leaves is the set the host's own spatial-hierarchy query already narrowed
// down to Region — this core never walks the tree itself (spec 1: ray
// queries and node splitting are the hierarchy's job, not the remesher's).
type Params struct {
	Region       equeue.Region
	Leaves       []*spatial.Leaf
	Mode         Mode
	MaskCB       func(v *bmesh.Vert) float64
	ViewNormal   *common.Vec3
	UseFrontFace bool
	SymAxis      common.Vec3 // informational only; this core does not mirror
	UpdateHier   bool
	MinTargetLen float64
	MaxTargetLen float64
	StrokeID     int64
	Workers      int
}

// Driver runs C9 over one mesh/membership/hierarchy triple.
type Driver struct {
	M     *bmesh.Mesh
	Owner *spatial.Owner
	Hier  spatial.Hierarchy
	Log   *zap.Logger
}

// NewDriver binds a driver to its collaborators.
func NewDriver(m *bmesh.Mesh, owner *spatial.Owner, hier spatial.Hierarchy, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{M: m, Owner: owner, Hier: hier, Log: log}
}

// UpdateTopology runs one collapse/subdivide/cleanup pass over p.Leaves,
// reporting whether the mesh changed (spec 4.9's seven numbered steps).
func (d *Driver) UpdateTopology(p Params) (bool, error) {
	for _, leaf := range p.Leaves {
		if d.Hier.Leaf(leaf.Index) == nil {
			return false, fmt.Errorf("%w: leaf %d", ErrCorruptLeafIndex, leaf.Index)
		}
	}

	var viewNormal *common.Vec3
	if p.UseFrontFace {
		viewNormal = p.ViewNormal
	}

	modified := false
	var watchlist []*bmesh.Vert
	avgTargetLen := 0.5 * (p.MinTargetLen + p.MaxTargetLen)

	// 1. Collapse.
	if p.Mode&ModeCollapse != 0 {
		d.M.Log.EntryAdd("collapse")
		cfg := equeue.Config{
			Mode:       equeue.ModeCollapse,
			Region:     p.Region,
			ViewNormal: viewNormal,
			LowerLen:   p.MinTargetLen,
			UpperLen:   math.Inf(1),
			BaseLen:    avgTargetLen,
			MaskCB:     p.MaskCB,
			Workers:    p.Workers,
			SmoothCB:   Smooth,
		}
		q := equeue.Build(d.M, p.Leaves, cfg)
		watchlist = append(watchlist, q.Watchlist...)

		budget := collapseBudget(q.Stats, p.MinTargetLen)
		c := NewCollapser(d.M, d.Owner, p.StrokeID)
		steps := 0
		for steps < budget {
			e, ok := q.PopCollapse(d.M, d.Owner)
			if !ok {
				break
			}
			v1, ok1 := c.Resolve(e.V1)
			v2, ok2 := c.Resolve(e.V2)
			if !ok1 || !ok2 || v1 == v2 {
				continue
			}
			edge := d.M.EdgeExists(v1, v2)
			if edge == nil {
				continue
			}
			if c.Collapse(v1, v2, edge) {
				modified = true
			}
			steps++
		}
	}

	// 2. Subdivide.
	if p.Mode&ModeSubdivide != 0 {
		d.M.Log.EntryAdd("subdivide")
		cfg := equeue.Config{
			Mode:       equeue.ModeSubdivide,
			Region:     p.Region,
			ViewNormal: viewNormal,
			UpperLen:   p.MaxTargetLen,
			LowerLen:   0,
			BaseLen:    avgTargetLen,
			MaskCB:     p.MaskCB,
			Workers:    p.Workers,
			SmoothCB:   Smooth,
		}
		q := equeue.Build(d.M, p.Leaves, cfg)
		watchlist = append(watchlist, q.Watchlist...)

		radius := math.Sqrt(p.Region.RangeSq())
		budget := subdivideBudget(radius, avgTargetLen)
		var pending []Pending
		for len(pending) < budget {
			e, ok := q.PopSubdivide(d.M, d.Owner)
			if !ok {
				break
			}
			pending = append(pending, Pending{V1: e.V1, V2: e.V2})
		}
		if n := Subdivide(d.M, d.Owner, pending, p.StrokeID); n > 0 {
			modified = true
		}
	}

	// 3. Cleanup without subdivide: the watchlist was never populated by a
	// C4 scan this call, so gather it directly from the supplied leaves.
	if p.Mode&ModeCleanup != 0 && p.Mode&ModeSubdivide == 0 {
		for _, leaf := range p.Leaves {
			for v := range leaf.Verts {
				if !p.Region.VertInRange(v) {
					continue
				}
				if v.Ann.Flags&bmesh.NeedsValence != 0 {
					bmesh.UpdateValence(v)
				}
				if int(v.Ann.Valence) < 5 {
					watchlist = append(watchlist, v)
				}
			}
		}
	}

	// 4. Clear VALENCE_SCRATCH on the watchlist.
	for _, v := range watchlist {
		v.Ann.Flags &^= bmesh.ValenceScratch
	}

	// 5. Cleanup.
	if p.Mode&ModeCleanup != 0 {
		d.M.Log.EntryAdd("cleanup")
		if n := Cleanup(d.M, d.Owner, p.Region, dedupVerts(watchlist)); n > 0 {
			modified = true
		}
	}

	// 6. Hierarchy split negotiation on dirty leaves. Only the topology bit
	// is cleared here (spec 4.9 step 6): redraw/BB/normals/tris/other-verts
	// stay set for the host to consume once this call returns.
	if modified {
		for _, leaf := range p.Leaves {
			if leaf.Dirty&spatial.DirtyTopology == 0 {
				continue
			}
			leaf.Dirty &^= spatial.DirtyTopology
			if !p.UpdateHier {
				continue
			}
			if _, split := d.Hier.EnsureLeafLimit(leaf.Index); split {
				d.Log.Warn("leaf split during remesh", zap.Int32("leaf", leaf.Index))
			}
		}
	}

	// 7. Rebuild triangulation caches on every leaf touched this call.
	for _, leaf := range p.Leaves {
		d.Hier.CheckTris(leaf.Index)
	}

	return modified, nil
}

func collapseBudget(stats equeue.Stats, minTarget float64) int {
	if stats.Count == 0 {
		return 0
	}
	denom := 0.5*minTarget + 0.5*stats.Max
	factor := 1.0
	if denom > 0 {
		factor = common.Clamp(stats.Avg/denom, 0.25, 5.0)
	}
	budget := int(float64(stats.Count) * factor)
	if budget < 1 {
		budget = 1
	}
	return budget
}

func subdivideBudget(radius, avgTargetLen float64) int {
	if avgTargetLen <= 0 {
		return 0
	}
	ratio := radius / avgTargetLen
	budget := int(ratio*ratio*math.Pi + 0.5)
	if budget < 1 {
		budget = 1
	}
	return budget
}

// dedupVerts removes duplicate entries (the same vertex can land on the
// watchlist from both the collapse and subdivide scans) while preserving
// first-seen order.
func dedupVerts(in []*bmesh.Vert) []*bmesh.Vert {
	seen := make(map[*bmesh.Vert]bool, len(in))
	out := make([]*bmesh.Vert, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
