package m2

// buildLookup makes a direct table: entry id holds the first index with that id, or -1.
func buildLookup(n int, id func(i int) int) []int16 {
	size := 0
	for i := 0; i < n; i++ {
		if v := id(i); v >= size {
			size = v + 1
		}
	}
	table := make([]int16, size)
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < n; i++ {
		if v := id(i); v >= 0 && table[v] == -1 {
			table[v] = int16(i)
		}
	}
	return table
}

func BuildSequenceLookup(seqs []Sequence) []int16 {
	return buildLookup(len(seqs), func(i int) int {
		return int(seqs[i].AnimationID)
	})
}

func BuildKeyBoneLookup(bones []Bone) []int16 {
	return buildLookup(len(bones), func(i int) int {
		return int(bones[i].KeyBoneID)
	})
}

func BuildAttachmentLookup(attachments []Attachment) []int16 {
	return buildLookup(len(attachments), func(i int) int {
		return int(attachments[i].ID)
	})
}

func BuildCameraLookup(cameras []Camera) []int16 {
	return buildLookup(len(cameras), func(i int) int {
		return int(int32(cameras[i].Type))
	})
}

func find(table []int16, id int) int {
	if id < 0 || id >= len(table) {
		return -1
	}
	return int(table[id])
}

// FindSequence returns the first sequence playing animation id, or -1.
func (m *Model) FindSequence(id uint16) int {
	if i := find(m.SequenceLookup, int(id)); i >= 0 && i < len(m.Sequences) && m.Sequences[i].AnimationID == id {
		return i
	}
	for i := range m.Sequences {
		if m.Sequences[i].AnimationID == id {
			return i
		}
	}
	return -1
}

func (m *Model) FindKeyBone(id int) int {
	return find(m.KeyBoneLookup, id)
}

func (m *Model) FindAttachment(id int) int {
	return find(m.AttachmentLookup, id)
}

// RebuildLookups regenerates the id tables derived from entity arrays.
func (m *Model) RebuildLookups() {
	m.SequenceLookup = BuildSequenceLookup(m.Sequences)
	m.KeyBoneLookup = BuildKeyBoneLookup(m.Bones)
	m.AttachmentLookup = BuildAttachmentLookup(m.Attachments)
	m.CameraLookup = BuildCameraLookup(m.Cameras)
}
