package gltfscene

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/utils/gltfutils"
)

type reader struct {
	doc *gltf.Document
	sel scene.Selection
	log *utils.Logger
	ir  *scene.ModelIR

	// boneOf maps a node to its bone, -1 for nodes outside the skeleton
	boneOf []int
	rest   []mgl32.Vec3
}

func (r *reader) read() (*scene.ModelIR, error) {
	r.ir = &scene.ModelIR{}
	if len(r.doc.Scenes) != 0 {
		var extras modelExtras
		ok, err := gltfutils.GetExtras(r.doc.Scenes[0].Extras, &extras)
		if err != nil {
			return nil, errors.Wrap(err, "scene extras")
		}
		r.ir.Name = r.doc.Scenes[0].Name
		if ok {
			r.ir.Name = extras.Name
			r.ir.Flags = extras.Flags
			r.ir.GlobalSequences = extras.GlobalSequences
			r.ir.Colors = extras.Colors
			r.ir.TextureWeights = extras.TextureWeights
			r.ir.TextureTransforms = extras.TextureTransforms
			r.ir.Attachments = extras.Attachments
			r.ir.Events = extras.Events
			r.ir.Lights = extras.Lights
			r.ir.Cameras = extras.Cameras
			r.ir.Ribbons = extras.Ribbons
			r.ir.Particles = extras.Particles
		}
	}

	if err := r.readSkeleton(); err != nil {
		return nil, err
	}
	if err := r.readTextures(); err != nil {
		return nil, err
	}
	if err := r.readMaterials(); err != nil {
		return nil, err
	}
	for ni, node := range r.doc.Nodes {
		if node.Mesh == nil || !r.sel.Includes(node.Name) {
			continue
		}
		mesh, err := r.readMesh(node)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d %q", ni, node.Name)
		}
		r.ir.Meshes = append(r.ir.Meshes, mesh)
	}
	if err := r.readAnimations(); err != nil {
		return nil, err
	}
	return r.ir, nil
}

func (r *reader) readSkeleton() error {
	doc := r.doc
	r.boneOf = make([]int, len(doc.Nodes))
	for i := range r.boneOf {
		r.boneOf[i] = -1
	}
	if len(doc.Skins) == 0 {
		return nil
	}
	if len(doc.Skins) > 1 {
		r.log.Printf("[gltf] %d skins, only the first is used", len(doc.Skins))
	}
	joints := doc.Skins[0].Joints
	for bi, ni := range joints {
		if int(ni) >= len(doc.Nodes) {
			return errors.Errorf("joint %d references node %d of %d", bi, ni, len(doc.Nodes))
		}
		r.boneOf[ni] = bi
	}
	parentNode := make([]int, len(doc.Nodes))
	for i := range parentNode {
		parentNode[i] = -1
	}
	for ni, node := range doc.Nodes {
		for _, c := range node.Children {
			if int(c) < len(parentNode) {
				parentNode[c] = ni
			}
		}
	}

	r.rest = make([]mgl32.Vec3, len(joints))
	bones := make([]scene.Bone, len(joints))
	for bi, ni := range joints {
		node := doc.Nodes[ni]
		b := scene.Bone{Name: node.Name, Parent: scene.NO_PARENT, KeyBoneID: -1}
		var extras boneExtras
		if ok, err := gltfutils.GetExtras(node.Extras, &extras); err != nil {
			return errors.Wrapf(err, "joint %q extras", node.Name)
		} else if ok {
			b.Flags = extras.Flags
			b.KeyBoneID = extras.KeyBoneID
			b.SubmeshID = extras.SubmeshID
			b.NameCRC = extras.NameCRC
		}
		// the nearest ancestor that is a joint is the parent bone
		for p := parentNode[ni]; p >= 0; p = parentNode[p] {
			if r.boneOf[p] >= 0 {
				b.Parent = r.boneOf[p]
				break
			}
		}
		r.rest[bi] = node.Translation
		bones[bi] = b
	}

	// pivots accumulate rest translations down the hierarchy
	done := make([]bool, len(bones))
	var pivot func(bi, depth int) (mgl32.Vec3, error)
	pivot = func(bi, depth int) (mgl32.Vec3, error) {
		if done[bi] {
			return bones[bi].Pivot, nil
		}
		if depth > len(bones) {
			return mgl32.Vec3{}, errors.Errorf("joint %q is its own ancestor", bones[bi].Name)
		}
		p := r.rest[bi]
		if parent := bones[bi].Parent; parent >= 0 {
			pp, err := pivot(parent, depth+1)
			if err != nil {
				return p, err
			}
			p = pp.Add(p)
		}
		bones[bi].Pivot = p
		done[bi] = true
		return p, nil
	}
	for bi := range bones {
		if _, err := pivot(bi, 0); err != nil {
			return err
		}
	}
	r.ir.Bones = bones
	return nil
}

func (r *reader) readTextures() error {
	doc := r.doc
	for ti, tex := range doc.Textures {
		t := m2.Texture{}
		var extras textureExtras
		ok, err := gltfutils.GetExtras(tex.Extras, &extras)
		if err != nil {
			return errors.Wrapf(err, "texture %d extras", ti)
		}
		var img *scene.Image
		if tex.Source != nil && int(*tex.Source) < len(doc.Images) {
			gi := doc.Images[*tex.Source]
			t.Filename = gi.Name
			if gi.URI != "" && t.Filename == "" {
				t.Filename = gi.URI
			}
			if img, err = r.imageData(gi); err != nil {
				return errors.Wrapf(err, "texture %d image", ti)
			}
		}
		if ok {
			t = m2.Texture{Type: extras.Type, Flags: extras.Flags, Filename: extras.Filename}
		} else if tex.Sampler != nil && int(*tex.Sampler) < len(doc.Samplers) {
			s := doc.Samplers[*tex.Sampler]
			if s.WrapS == gltf.WrapRepeat {
				t.Flags |= m2.TEXTURE_FLAG_WRAP_X
			}
			if s.WrapT == gltf.WrapRepeat {
				t.Flags |= m2.TEXTURE_FLAG_WRAP_Y
			}
		}
		r.ir.Textures = append(r.ir.Textures, t)
		r.ir.Images = append(r.ir.Images, img)
	}
	return nil
}

// imageData returns the bytes of an image embedded in a buffer view.
func (r *reader) imageData(gi *gltf.Image) (*scene.Image, error) {
	if gi.BufferView == nil {
		return nil, nil
	}
	doc := r.doc
	if int(*gi.BufferView) >= len(doc.BufferViews) {
		return nil, errors.Errorf("buffer view %d of %d", *gi.BufferView, len(doc.BufferViews))
	}
	bv := doc.BufferViews[*gi.BufferView]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return nil, errors.Errorf("buffer %d of %d", bv.Buffer, len(doc.Buffers))
	}
	data := doc.Buffers[bv.Buffer].Data
	end := int(bv.ByteOffset) + int(bv.ByteLength)
	if end > len(data) {
		return nil, errors.Errorf("buffer view ends at %d of %d", end, len(data))
	}
	return &scene.Image{MimeType: gi.MimeType, Data: data[bv.ByteOffset:end]}, nil
}

func (r *reader) textureIndex(gltfTexture uint32) int {
	if int(gltfTexture) < len(r.ir.Textures) {
		return int(gltfTexture)
	}
	return -1
}

func (r *reader) readMaterials() error {
	for mi, gm := range r.doc.Materials {
		var mat materialExtras
		ok, err := gltfutils.GetExtras(gm.Extras, &mat)
		if err != nil {
			return errors.Wrapf(err, "material %d extras", mi)
		}
		if !ok {
			mat = material.New(gm.Name)
			switch gm.AlphaMode {
			case gltf.AlphaMask:
				mat.Blend = m2.BlendAlphaKey
			case gltf.AlphaBlend:
				mat.Blend = m2.BlendAlpha
			}
			if gm.DoubleSided {
				mat.Flags |= m2.MATERIAL_FLAG_TWO_SIDED
			}
			if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
				if t := r.textureIndex(pbr.BaseColorTexture.Index); t >= 0 {
					mat.Slots = append(mat.Slots, material.Slot{
						Texture:   t,
						UVSet:     int(pbr.BaseColorTexture.TexCoord),
						Transform: -1,
					})
				}
			}
		}
		if mat.Name == "" {
			mat.Name = gm.Name
		}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", mi)
		}
		r.ir.Materials = append(r.ir.Materials, mat)
	}
	return nil
}

func (r *reader) readMesh(node *gltf.Node) (geometry.Mesh, error) {
	doc := r.doc
	if int(*node.Mesh) >= len(doc.Meshes) {
		return geometry.Mesh{}, errors.Errorf("mesh %d of %d", *node.Mesh, len(doc.Meshes))
	}
	gmesh := doc.Meshes[*node.Mesh]
	mesh := geometry.Mesh{Name: node.Name}
	if mesh.Name == "" {
		mesh.Name = gmesh.Name
	}
	var extras meshExtras
	if ok, err := gltfutils.GetExtras(node.Extras, &extras); err != nil {
		return mesh, err
	} else if ok {
		mesh.MeshPart = extras.MeshPart
		mesh.Collision = extras.Collision
	}

	// primitives sharing a position accessor share vertices
	base := make(map[uint32]int)
	for pi, p := range gmesh.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			r.log.Printf("[gltf] mesh %q primitive %d: mode %v skipped", mesh.Name, pi, p.Mode)
			continue
		}
		posAccessor, ok := p.Attributes["POSITION"]
		if !ok {
			continue
		}
		offset, seen := base[posAccessor]
		if !seen {
			offset = len(mesh.Vertices)
			base[posAccessor] = offset
			vertices, err := r.readVertices(p)
			if err != nil {
				return mesh, errors.Wrapf(err, "primitive %d", pi)
			}
			mesh.Vertices = append(mesh.Vertices, vertices...)
		}
		count := len(mesh.Vertices) - offset
		if seen {
			count = int(doc.Accessors[posAccessor].Count)
		}

		var indices []uint32
		if p.Indices != nil {
			var err error
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
			if err != nil {
				return mesh, errors.Wrapf(err, "primitive %d indices", pi)
			}
		} else {
			for i := 0; i < count; i++ {
				indices = append(indices, uint32(i))
			}
		}
		mat := -1
		if p.Material != nil {
			mat = int(*p.Material)
		}
		for i := 0; i+2 < len(indices); i += 3 {
			mesh.Faces = append(mesh.Faces, geometry.Face{
				Corners:  []int{offset + int(indices[i]), offset + int(indices[i+1]), offset + int(indices[i+2])},
				Material: mat,
			})
		}
	}
	return mesh, nil
}

func (r *reader) readVertices(p *gltf.Primitive) ([]geometry.Vertex, error) {
	doc := r.doc
	attr := func(name string) (*gltf.Accessor, bool) {
		i, ok := p.Attributes[name]
		if !ok || int(i) >= len(doc.Accessors) {
			return nil, false
		}
		return doc.Accessors[i], true
	}

	acc, _ := attr("POSITION")
	positions, err := modeler.ReadPosition(doc, acc, nil)
	if err != nil {
		return nil, errors.Wrap(err, "positions")
	}
	vertices := make([]geometry.Vertex, len(positions))
	for i := range positions {
		vertices[i].Position = positions[i]
	}
	if acc, ok := attr("NORMAL"); ok {
		normals, err := modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "normals")
		}
		for i := range normals {
			if i < len(vertices) {
				vertices[i].Normal = normals[i]
			}
		}
	}
	for set := 0; set < 2; set++ {
		acc, ok := attr(fmt.Sprintf("TEXCOORD_%d", set))
		if !ok {
			continue
		}
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "uv set %d", set)
		}
		for i := range uvs {
			if i < len(vertices) {
				vertices[i].UV[set] = uvs[i]
			}
		}
	}
	if acc, ok := attr("COLOR_0"); ok {
		colors, err := modeler.ReadColor(doc, acc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "colors")
		}
		for i := range colors {
			if i < len(vertices) {
				c := colors[i]
				vertices[i].Color = mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
			}
		}
	}
	jointsAcc, hasJoints := attr("JOINTS_0")
	weightsAcc, hasWeights := attr("WEIGHTS_0")
	if hasJoints && hasWeights && len(r.ir.Bones) != 0 {
		joints, err := modeler.ReadJoints(doc, jointsAcc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "joints")
		}
		weights, err := modeler.ReadWeights(doc, weightsAcc, nil)
		if err != nil {
			return nil, errors.Wrap(err, "weights")
		}
		for i := range vertices {
			if i >= len(joints) || i >= len(weights) {
				break
			}
			for k := 0; k < 4; k++ {
				if weights[i][k] > 0 {
					vertices[i].Influences = append(vertices[i].Influences, m2.Influence{
						Bone:   int(joints[i][k]),
						Weight: weights[i][k],
					})
				}
			}
		}
	}
	return vertices, nil
}

func ms(seconds float32) uint32 {
	if seconds <= 0 {
		return 0
	}
	return uint32(math.Round(float64(seconds) * 1000))
}

type pendingAnimation struct {
	anim   *gltf.Animation
	extras animationExtras
}

func (r *reader) readAnimations() error {
	ir := r.ir
	var sequences, globals []pendingAnimation
	for ai, anim := range r.doc.Animations {
		pa := pendingAnimation{anim: anim, extras: animationExtras{Index: -1, Global: -1}}
		ok, err := gltfutils.GetExtras(anim.Extras, &pa.extras)
		if err != nil {
			return errors.Wrapf(err, "animation %d extras", ai)
		}
		if !ok {
			pa.extras.Index = len(r.doc.Animations) + ai
		}
		if pa.extras.Global >= 0 {
			globals = append(globals, pa)
		} else {
			sequences = append(sequences, pa)
		}
	}
	sort.SliceStable(sequences, func(a, b int) bool {
		return sequences[a].extras.Index < sequences[b].extras.Index
	})

	for si := range sequences {
		pa := &sequences[si]
		var seq m2.Sequence
		if pa.extras.Sequence != nil {
			seq = *pa.extras.Sequence
		} else {
			seq = m2.Sequence{Flags: m2.SEQUENCE_FLAG_PRIMARY, VariationNext: -1}
			var id, variation uint16
			if n, _ := fmt.Sscanf(pa.anim.Name, "anim_%d_%d", &id, &variation); n == 2 {
				seq.AnimationID, seq.VariationIndex = id, variation
			} else {
				seq.VariationIndex = uint16(si)
			}
		}
		ir.Sequences = append(ir.Sequences, seq)
	}
	for _, pa := range globals {
		for len(ir.GlobalSequences) <= pa.extras.Global {
			ir.GlobalSequences = append(ir.GlobalSequences, 0)
		}
		if ir.GlobalSequences[pa.extras.Global] == 0 {
			ir.GlobalSequences[pa.extras.Global] = pa.extras.Duration
		}
	}

	n := len(ir.Sequences)
	for bi := range ir.Bones {
		b := &ir.Bones[bi]
		b.Translation = track.NewPerSequence[mgl32.Vec3](track.Linear, n)
		b.Rotation = track.NewPerSequence[mgl32.Quat](track.Linear, n)
		b.Scale = track.NewPerSequence[mgl32.Vec3](track.Linear, n)
	}
	for _, pa := range globals {
		if _, err := r.readChannels(pa, 0, pa.extras.Global); err != nil {
			return err
		}
	}
	for si, pa := range sequences {
		end, err := r.readChannels(pa, si, -1)
		if err != nil {
			return err
		}
		if pa.extras.Sequence == nil && end > ir.Sequences[si].Duration {
			ir.Sequences[si].Duration = end
		}
	}
	return nil
}

func setKeys[T any](t *track.Track[T], interp track.Interpolation, seq, global int, timestamps []uint32, values []T) error {
	if global >= 0 {
		if t.GlobalSequence() != global {
			*t = track.NewGlobal[T](interp, global)
		}
		t.Interpolation = interp
		return t.Set(0, timestamps, values)
	}
	if t.IsGlobal() {
		return nil
	}
	t.Interpolation = interp
	return t.Set(seq, timestamps, values)
}

// readChannels loads the joint channels of one animation into sequence seq,
// or into global sequence global when global >= 0. It returns the last key time.
func (r *reader) readChannels(pa pendingAnimation, seq, global int) (uint32, error) {
	doc := r.doc
	anim := pa.anim
	var end uint32
	for ci, ch := range anim.Channels {
		if ch.Sampler == nil || int(*ch.Sampler) >= len(anim.Samplers) || ch.Target.Node == nil {
			continue
		}
		node := int(*ch.Target.Node)
		if node >= len(r.boneOf) || r.boneOf[node] < 0 {
			r.log.Printf("[gltf] animation %q channel %d targets node %d outside the skeleton", anim.Name, ci, node)
			continue
		}
		b := &r.ir.Bones[r.boneOf[node]]
		sampler := anim.Samplers[*ch.Sampler]
		if sampler.Input == nil || sampler.Output == nil ||
			int(*sampler.Input) >= len(doc.Accessors) || int(*sampler.Output) >= len(doc.Accessors) {
			return 0, errors.Errorf("animation %q channel %d: bad sampler accessors", anim.Name, ci)
		}

		input, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Input], nil)
		if err != nil {
			return 0, errors.Wrapf(err, "animation %q channel %d input", anim.Name, ci)
		}
		times, ok := input.([]float32)
		if !ok {
			return 0, errors.Errorf("animation %q channel %d: input is %T", anim.Name, ci, input)
		}
		timestamps := make([]uint32, len(times))
		for i, t := range times {
			timestamps[i] = ms(t)
		}
		if len(timestamps) != 0 && timestamps[len(timestamps)-1] > end {
			end = timestamps[len(timestamps)-1]
		}

		interp := track.Linear
		stride, pick := 1, 0
		switch sampler.Interpolation {
		case gltf.InterpolationStep:
			interp = track.None
		case gltf.InterpolationCubicSpline:
			// in tangent, value, out tangent
			stride, pick = 3, 1
		}
		var extras samplerExtras
		if ok, err := gltfutils.GetExtras(sampler.Extras, &extras); err != nil {
			return 0, err
		} else if ok {
			interp = extras.Interpolation
		}

		output, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Output], nil)
		if err != nil {
			return 0, errors.Wrapf(err, "animation %q channel %d output", anim.Name, ci)
		}
		bi := r.boneOf[node]
		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			vals, ok := output.([][3]float32)
			if !ok || len(vals) < len(timestamps)*stride {
				return 0, errors.Errorf("animation %q channel %d: output %T", anim.Name, ci, output)
			}
			values := make([]mgl32.Vec3, len(timestamps))
			for i := range values {
				values[i] = vals[i*stride+pick]
			}
			if ch.Target.Path == gltf.TRSTranslation {
				for i := range values {
					values[i] = values[i].Sub(r.rest[bi])
				}
				err = setKeys(&b.Translation, interp, seq, global, timestamps, values)
			} else {
				err = setKeys(&b.Scale, interp, seq, global, timestamps, values)
			}
		case gltf.TRSRotation:
			vals, ok := output.([][4]float32)
			if !ok || len(vals) < len(timestamps)*stride {
				return 0, errors.Errorf("animation %q channel %d: output %T", anim.Name, ci, output)
			}
			values := make([]mgl32.Quat, len(timestamps))
			for i := range values {
				v := vals[i*stride+pick]
				values[i] = mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
			}
			err = setKeys(&b.Rotation, interp, seq, global, timestamps, values)
		default:
			continue
		}
		if err != nil {
			return 0, errors.Wrapf(err, "animation %q channel %d", anim.Name, ci)
		}
	}
	return end, nil
}
