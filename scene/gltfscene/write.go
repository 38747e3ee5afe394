package gltfscene

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/utils/gltfutils"
)

type writer struct {
	cacher *gltfutils.GLTFCacher
	ir     *scene.ModelIR
	images bool

	jointNodes []uint32
	// rest holds the joint translation relative to the parent joint
	rest []mgl32.Vec3
	skin *uint32
}

func (w *writer) doc() *gltf.Document {
	return w.cacher.Doc
}

func (w *writer) write() error {
	doc := w.doc()
	ir := w.ir
	doc.Scenes[0].Name = ir.Name
	doc.Scenes[0].Extras = modelExtras{
		Name:              ir.Name,
		Flags:             ir.Flags,
		GlobalSequences:   ir.GlobalSequences,
		Colors:            ir.Colors,
		TextureWeights:    ir.TextureWeights,
		TextureTransforms: ir.TextureTransforms,
		Attachments:       ir.Attachments,
		Events:            ir.Events,
		Lights:            ir.Lights,
		Cameras:           ir.Cameras,
		Ribbons:           ir.Ribbons,
		Particles:         ir.Particles,
	}

	w.writeSkeleton()
	textures := make([]uint32, len(ir.Textures))
	for i := range ir.Textures {
		var err error
		if textures[i], err = w.writeTexture(i); err != nil {
			return err
		}
	}
	w.writeMaterials(textures)
	for i := range ir.Meshes {
		w.writeMesh(&ir.Meshes[i])
	}
	for i := range ir.Sequences {
		w.writeAnimation(i, -1)
	}
	for g := range ir.GlobalSequences {
		w.writeAnimation(-1, g)
	}
	return nil
}

func (w *writer) writeSkeleton() {
	doc := w.doc()
	bones := w.ir.Bones
	if len(bones) == 0 {
		return
	}
	w.jointNodes = make([]uint32, len(bones))
	w.rest = make([]mgl32.Vec3, len(bones))
	for i := range bones {
		w.jointNodes[i] = uint32(len(doc.Nodes)) + uint32(i)
	}
	inverseBind := make([][4][4]float32, len(bones))
	for i := range bones {
		b := &bones[i]
		var parentPivot mgl32.Vec3
		if b.Parent >= 0 && b.Parent < len(bones) {
			parentPivot = bones[b.Parent].Pivot
		}
		w.rest[i] = b.Pivot.Sub(parentPivot)
		inverseBind[i] = matrixColumns(mgl32.Translate3D(-b.Pivot[0], -b.Pivot[1], -b.Pivot[2]))
	}
	for i := range bones {
		b := &bones[i]
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: w.rest[i],
			Extras: boneExtras{
				Flags:     b.Flags,
				KeyBoneID: b.KeyBoneID,
				SubmeshID: b.SubmeshID,
				NameCRC:   b.NameCRC,
			},
		})
	}
	for i := range bones {
		if p := bones[i].Parent; p >= 0 && p < len(bones) {
			parent := doc.Nodes[w.jointNodes[p]]
			parent.Children = append(parent.Children, w.jointNodes[i])
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, w.jointNodes[i])
		}
	}

	w.skin = gltf.Index(uint32(len(doc.Skins)))
	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:                "skeleton",
		Joints:              w.jointNodes,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, inverseBind)),
	})
}

// matrixColumns lays m out column major, as glTF expects.
func matrixColumns(m mgl32.Mat4) (out [4][4]float32) {
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c][r] = m.At(r, c)
		}
	}
	return
}

// writeTexture adds one glTF texture per model texture. Images are shared
// between textures naming the same file.
func (w *writer) writeTexture(i int) (uint32, error) {
	doc := w.doc()
	tex := &w.ir.Textures[i]
	sampler := &gltf.Sampler{
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapClampToEdge,
		WrapT:     gltf.WrapClampToEdge,
	}
	if tex.Flags&m2.TEXTURE_FLAG_WRAP_X != 0 {
		sampler.WrapS = gltf.WrapRepeat
	}
	if tex.Flags&m2.TEXTURE_FLAG_WRAP_Y != 0 {
		sampler.WrapT = gltf.WrapRepeat
	}
	samplerIndex := uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, sampler)

	name := tex.Filename
	if name == "" {
		name = fmt.Sprintf("texture_%d", i)
	}
	var failed error
	imageIndex := w.cacher.GetCachedOr("image:"+name, func() interface{} {
		if img := w.image(i); img != nil {
			index, err := modeler.WriteImage(doc, name, img.MimeType, bytes.NewReader(img.Data))
			if err != nil {
				failed = errors.Wrapf(err, "Failed to write gltf image %q", name)
			}
			return index
		}
		doc.Images = append(doc.Images, &gltf.Image{Name: name})
		return uint32(len(doc.Images) - 1)
	}).(uint32)
	if failed != nil {
		return 0, failed
	}

	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    name,
		Sampler: gltf.Index(samplerIndex),
		Source:  gltf.Index(imageIndex),
		Extras:  textureExtras{Type: tex.Type, Flags: tex.Flags, Filename: tex.Filename},
	})
	return uint32(len(doc.Textures) - 1), nil
}

func (w *writer) image(i int) *scene.Image {
	if !w.images || i >= len(w.ir.Images) {
		return nil
	}
	if img := w.ir.Images[i]; img != nil && len(img.Data) != 0 {
		return img
	}
	return nil
}

func (w *writer) writeMaterials(textures []uint32) {
	doc := w.doc()
	for i := range w.ir.Materials {
		mat := &w.ir.Materials[i]
		gm := &gltf.Material{
			Name:                 mat.Name,
			DoubleSided:          mat.TwoSided(),
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
			Extras:               *mat,
		}
		switch mat.Blend {
		case m2.BlendOpaque:
			gm.AlphaMode = gltf.AlphaOpaque
		case m2.BlendAlphaKey:
			gm.AlphaMode = gltf.AlphaMask
		default:
			gm.AlphaMode = gltf.AlphaBlend
		}
		if len(mat.Slots) != 0 {
			slot := mat.Slots[0]
			if slot.Texture >= 0 && slot.Texture < len(textures) {
				texCoord := uint32(0)
				if slot.UVSet == 1 {
					texCoord = 1
				}
				gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
					Index:    textures[slot.Texture],
					TexCoord: texCoord,
				}
			}
		}
		doc.Materials = append(doc.Materials, gm)
	}
}

func (w *writer) writeMesh(mesh *geometry.Mesh) {
	doc := w.doc()
	n := len(mesh.Vertices)
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	uv0 := make([][2]float32, n)
	uv1 := make([][2]float32, n)
	var colors [][4]uint8
	for i := range mesh.Vertices {
		v := &mesh.Vertices[i]
		positions[i] = v.Position
		normals[i] = v.Normal
		uv0[i] = v.UV[0]
		uv1[i] = v.UV[1]
		if v.Color != (mgl32.Vec4{}) && colors == nil {
			colors = make([][4]uint8, n)
		}
	}
	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(doc, positions),
		"NORMAL":     modeler.WriteNormal(doc, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(doc, uv0),
		"TEXCOORD_1": modeler.WriteTextureCoord(doc, uv1),
	}
	if colors != nil {
		for i := range mesh.Vertices {
			c := mesh.Vertices[i].Color
			for k := range c {
				colors[i][k] = uint8(mgl32.Clamp(c[k], 0, 1)*255 + 0.5)
			}
		}
		attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
	}
	skinned := w.skin != nil && !mesh.Collision
	if skinned {
		joints := make([][4]uint16, n)
		weights := make([][4]float32, n)
		for i := range mesh.Vertices {
			ws, bs, _ := m2.NormalizeInfluences(mesh.Vertices[i].Influences)
			for k := range ws {
				joints[i][k] = uint16(bs[k])
				weights[i][k] = float32(ws[k]) / 255
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}

	// one primitive per material, in order of first use
	tris, materials, _ := geometry.Triangulate(mesh)
	var order []int
	byMaterial := make(map[int][]uint32)
	for ti, t := range tris {
		mat := materials[ti]
		if _, ok := byMaterial[mat]; !ok {
			order = append(order, mat)
		}
		byMaterial[mat] = append(byMaterial[mat], uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}
	gmesh := &gltf.Mesh{Name: mesh.Name}
	for _, mat := range order {
		p := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(doc, byMaterial[mat])),
			Attributes: attributes,
		}
		if mat >= 0 && mat < len(doc.Materials) {
			p.Material = gltf.Index(uint32(mat))
		}
		gmesh.Primitives = append(gmesh.Primitives, p)
	}
	if len(gmesh.Primitives) == 0 {
		gmesh.Primitives = append(gmesh.Primitives, &gltf.Primitive{Attributes: attributes})
	}

	node := &gltf.Node{
		Name:   mesh.Name,
		Mesh:   gltf.Index(uint32(len(doc.Meshes))),
		Extras: meshExtras{MeshPart: mesh.MeshPart, Collision: mesh.Collision},
	}
	if skinned {
		node.Skin = w.skin
	}
	doc.Meshes = append(doc.Meshes, gmesh)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, node)
}

func seconds(timestamps []uint32) []float32 {
	result := make([]float32, len(timestamps))
	for i, ts := range timestamps {
		result[i] = float32(ts) / 1000
	}
	return result
}

func (w *writer) channel(anim *gltf.Animation, node uint32, path gltf.TRSProperty, interp track.Interpolation, timestamps []uint32, output interface{}) {
	doc := w.doc()
	sampler := &gltf.AnimationSampler{
		Input:         gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, seconds(timestamps))),
		Output:        gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, output)),
		Interpolation: gltf.InterpolationLinear,
		Extras:        samplerExtras{Interpolation: interp},
	}
	if interp == track.None {
		sampler.Interpolation = gltf.InterpolationStep
	}
	anim.Samplers = append(anim.Samplers, sampler)
	anim.Channels = append(anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
		Target:  gltf.ChannelTarget{Node: gltf.Index(node), Path: path},
	})
}

// usesSlot reports whether t keeps keys for sequence seq, or for global
// sequence global when seq < 0.
func usesSlot[T any](t *track.Track[T], seq, global int) bool {
	if seq >= 0 {
		return !t.IsGlobal()
	}
	return t.GlobalSequence() == global
}

func (w *writer) writeAnimation(seq, global int) {
	doc := w.doc()
	ir := w.ir
	extras := animationExtras{Index: seq, Global: global}
	anim := &gltf.Animation{}
	if seq >= 0 {
		s := ir.Sequences[seq]
		extras.Sequence = &s
		extras.Duration = s.Duration
		anim.Name = fmt.Sprintf("anim_%d_%d", s.AnimationID, s.VariationIndex)
	} else {
		extras.Index = -1
		extras.Duration = ir.GlobalSequences[global]
		anim.Name = fmt.Sprintf("global_%d", global)
	}
	anim.Extras = extras

	for bi := range ir.Bones {
		b := &ir.Bones[bi]
		node := w.jointNodes[bi]
		if usesSlot(&b.Translation, seq, global) {
			if k := b.Translation.Keys(seq); k.Len() != 0 {
				out := make([][3]float32, len(k.Values))
				for i, v := range k.Values {
					out[i] = w.rest[bi].Add(v)
				}
				w.channel(anim, node, gltf.TRSTranslation, b.Translation.Interpolation, k.Timestamps, out)
			}
		}
		if usesSlot(&b.Rotation, seq, global) {
			if k := b.Rotation.Keys(seq); k.Len() != 0 {
				out := make([][4]float32, len(k.Values))
				for i, q := range k.Values {
					out[i] = [4]float32{q.V[0], q.V[1], q.V[2], q.W}
				}
				w.channel(anim, node, gltf.TRSRotation, b.Rotation.Interpolation, k.Timestamps, out)
			}
		}
		if usesSlot(&b.Scale, seq, global) {
			if k := b.Scale.Keys(seq); k.Len() != 0 {
				out := make([][3]float32, len(k.Values))
				for i, v := range k.Values {
					out[i] = v
				}
				w.channel(anim, node, gltf.TRSScale, b.Scale.Interpolation, k.Timestamps, out)
			}
		}
	}
	doc.Animations = append(doc.Animations, anim)
}
