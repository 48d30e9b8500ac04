package math

/**
 * @brief Generates a face normal for every triangle and writes it to the
 * triangle's three vertices. Shared vertices keep the normal of the last
 * face that touched them; smoothing would be a separate pass.
 */
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

/**
 * @brief Derives a per-triangle tangent from the texture coordinate deltas
 * of each face and writes it to the triangle's three vertices. Triangles
 * with degenerate texture coordinates are skipped.
 */
func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X - vertices[i0].Texcoord.X
		deltaV1 := vertices[i1].Texcoord.Y - vertices[i0].Texcoord.Y

		deltaU2 := vertices[i2].Texcoord.X - vertices[i0].Texcoord.X
		deltaV2 := vertices[i2].Texcoord.Y - vertices[i0].Texcoord.Y

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if dividend > -K_FLOAT_EPSILON && dividend < K_FLOAT_EPSILON {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			fc * (deltaV2*edge1.X - deltaV1*edge2.X),
			fc * (deltaV2*edge1.Y - deltaV1*edge2.Y),
			fc * (deltaV2*edge1.Z - deltaV1*edge2.Z),
		}
		tangent = tangent.Normalized()

		handedness := float32(1.0)
		if (deltaV1*deltaU2 - deltaV2*deltaU1) < 0.0 {
			handedness = -1.0
		}

		t := tangent.MulScalar(handedness)
		vertices[i0].Tangent = t
		vertices[i1].Tangent = t
		vertices[i2].Tangent = t
	}
}
