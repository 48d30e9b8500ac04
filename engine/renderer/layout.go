package renderer

import (
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// NewVertexDeclaration computes the packed stream layout for an ordered
// attribute list. Each stream's byte size is the attribute's data type size
// times its element count and offsets are the running sum in declaration
// order. No alignment padding is inserted even though some backends expect
// 4-byte aligned streams; layouts are tightly packed and the limitation is
// accepted. Attributes with a zero element count are skipped entirely and
// never reach the backend.
func NewVertexDeclaration(attributes []metadata.VertexAttribute) *metadata.VertexDeclaration {
	declaration := &metadata.VertexDeclaration{
		Streams: make([]metadata.VertexStream, 0, len(attributes)),
	}
	offset := uint32(0)
	for i := range attributes {
		attribute := &attributes[i]
		if attribute.ElementCount == 0 {
			continue
		}
		size := attribute.ByteSize()
		declaration.Streams = append(declaration.Streams, metadata.VertexStream{
			Name:      attribute.Name,
			NameHash:  attribute.NameHash,
			Offset:    offset,
			Size:      size,
			DataType:  attribute.DataType,
			Normalize: attribute.Normalize,
		})
		offset += size
	}
	declaration.Stride = offset
	return declaration
}
