// Command remeshcli is a small, GUI-free harness that exercises
// remesh.Driver.UpdateTopology end-to-end against a procedurally built
// seed mesh, the way the teacher's own recast_test.go drives its pipeline
// against a generated heightfield rather than a file on disk.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/KnightxMare/blender/attrs"
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
	"github.com/KnightxMare/blender/equeue"
	"github.com/KnightxMare/blender/obslog"
	"github.com/KnightxMare/blender/oplog"
	"github.com/KnightxMare/blender/remesh"
	"github.com/KnightxMare/blender/spatial"
	"github.com/KnightxMare/blender/triangulate"
)

func main() {
	var (
		passes   = flag.Int("passes", 4, "number of UpdateTopology passes to run")
		minLen   = flag.Float64("min-len", 0.25, "collapse threshold edge length")
		maxLen   = flag.Float64("max-len", 0.8, "subdivide threshold edge length")
		cellSize = flag.Float64("cell-size", 1.5, "spatial grid cell size")
		logLevel = flag.String("log-level", "info", "obslog level")
	)
	flag.Parse()

	log := obslog.New(obslog.Config{Level: *logLevel})
	defer log.Sync()

	attrStore := attrs.NewBlocks(1, 2, 1)
	recorder := oplog.NewRecorder()
	m := bmesh.NewMesh(recorder, attrStore, triangulate.EarClip{})
	grid := spatial.NewGrid(*cellSize, 64)
	owner := spatial.NewOwner(grid)

	seed, anchor := buildOctahedron(m, owner)
	nv, nf := meshStats(anchor)
	log.Info("seed mesh built", zap.Int("verts", nv), zap.Int("faces", nf))

	leaves := touchedLeaves(grid, owner, seed)
	driver := remesh.NewDriver(m, owner, grid, log)

	region := equeue.Sphere{Center: common.Vec3{0, 0, 0}, RadiusSq: 9}
	for i := 0; i < *passes; i++ {
		params := remesh.Params{
			Region:       region,
			Leaves:       leaves,
			Mode:         remesh.ModeCollapse | remesh.ModeSubdivide | remesh.ModeCleanup,
			MinTargetLen: *minLen,
			MaxTargetLen: *maxLen,
			UpdateHier:   true,
			StrokeID:     int64(i + 1),
			Workers:      2,
		}
		modified, err := driver.UpdateTopology(params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remeshcli: pass %d: %v\n", i, err)
			os.Exit(1)
		}
		nv, nf = meshStats(anchor)
		log.Info("pass complete", zap.Int("pass", i), zap.Int("verts", nv), zap.Int("faces", nf))
		fmt.Printf("pass %d: modified=%v verts=%d faces=%d\n", i, modified, nv, nf)
		if !modified {
			break
		}
	}

	recorder.ReplayReverse(m)
	nv, nf = meshStats(anchor)
	fmt.Printf("after undo: verts=%d faces=%d\n", nv, nf)
}

// buildOctahedron seeds a unit octahedron (6 verts, 8 triangles) as the
// harness's starting mesh, registers every face with owner, and returns the
// full vertex set plus one anchor vertex for later traversal.
func buildOctahedron(m *bmesh.Mesh, owner *spatial.Owner) ([]*bmesh.Vert, *bmesh.Vert) {
	axis := []common.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	verts := make([]*bmesh.Vert, len(axis))
	for i, p := range axis {
		verts[i] = m.VertCreate(p, p.Normalize())
	}
	px, nx, py, ny, pz, nz := verts[0], verts[1], verts[2], verts[3], verts[4], verts[5]

	tris := [8][3]*bmesh.Vert{
		{px, py, pz}, {py, nx, pz}, {nx, ny, pz}, {ny, px, pz},
		{py, px, nz}, {nx, py, nz}, {ny, nx, nz}, {px, ny, nz},
	}
	for _, t := range tris {
		f := m.FaceCreate(t, [3]*bmesh.Edge{}, nil)
		owner.FaceAdd(f, false)
		leaf := owner.FaceLeaf(f)
		for _, v := range t {
			// FaceAdd only ever assigns face ownership; a vertex's own
			// leaf is ours to set explicitly, so hand each corner to
			// whichever of its incident faces we last committed.
			owner.VertOwnershipTransfer(v, leaf)
		}
	}
	return verts, px
}

// touchedLeaves collects the distinct leaves any seed vertex's incident
// faces ended up owning.
func touchedLeaves(grid *spatial.Grid, owner *spatial.Owner, verts []*bmesh.Vert) []*spatial.Leaf {
	seenIdx := make(map[int32]bool)
	var out []*spatial.Leaf
	for _, v := range verts {
		idx := owner.VertLeaf(v)
		if idx == spatial.NoLeaf || seenIdx[idx] {
			continue
		}
		seenIdx[idx] = true
		if l := grid.Leaf(idx); l != nil {
			out = append(out, l)
		}
	}
	return out
}

// meshStats walks the mesh reachable from start by breadth-first traversal
// of the disk cycle, counting vertices, and faces via each visited edge's
// radial cycle.
func meshStats(start *bmesh.Vert) (verts, faces int) {
	seenV := map[*bmesh.Vert]bool{start: true}
	seenF := map[*bmesh.Face]bool{}
	queue := []*bmesh.Vert{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		first := bmesh.FirstEdge(v)
		if first == nil {
			continue
		}
		e := first
		for {
			other := e.OtherVert(v)
			if !seenV[other] {
				seenV[other] = true
				queue = append(queue, other)
			}
			if l := e.Loop; l != nil {
				firstLoop := l
				for {
					seenF[l.Face] = true
					l = l.RadialNext
					if l == firstLoop {
						break
					}
				}
			}
			e = bmesh.EdgeDiskNext(e, v)
			if e == first {
				break
			}
		}
	}
	return len(seenV), len(seenF)
}
