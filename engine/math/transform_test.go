package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformDefaultsToIdentity(t *testing.T) {
	tr := TransformCreate()
	assert.Equal(t, NewMat4Identity(), tr.GetLocal())
	assert.Equal(t, NewMat4Identity(), tr.GetWorld())
}

func TestTransformNilReceiverIsIdentity(t *testing.T) {
	var tr *Transform
	assert.Equal(t, NewMat4Identity(), tr.GetLocal())
	assert.Equal(t, NewMat4Identity(), tr.GetWorld())
}

func TestTransformLocalAppliesScaleRotationTranslation(t *testing.T) {
	tr := TransformFromPositionRotationScale(
		NewVec3(1, 2, 3),
		NewQuatIdentity(),
		NewVec3(2, 2, 2),
	)

	// Scale runs first, then rotation, then translation.
	assert.Equal(t, Vec3{3, 4, 5}, NewVec3(1, 1, 1).Transform(tr.GetLocal()))
}

func TestTransformPositionChangeInvalidatesCache(t *testing.T) {
	tr := TransformFromPosition(NewVec3(5, 0, 0))
	assert.Equal(t, Vec3{5, 0, 0}, NewVec3Zero().Transform(tr.GetWorld()))
	assert.False(t, tr.IsDirty)

	tr.SetPosition(NewVec3(0, 7, 0))
	assert.True(t, tr.IsDirty)
	assert.Equal(t, Vec3{0, 7, 0}, NewVec3Zero().Transform(tr.GetWorld()))
	assert.False(t, tr.IsDirty)
}

func TestTransformTranslateAccumulates(t *testing.T) {
	tr := TransformCreate()
	tr.Translate(NewVec3(1, 0, 0))
	tr.Translate(NewVec3(0, 2, 0))
	assert.Equal(t, Vec3{1, 2, 0}, NewVec3Zero().Transform(tr.GetWorld()))
}

func TestTransformParentChaining(t *testing.T) {
	parent := TransformFromPosition(NewVec3(0, 2, 0))
	child := TransformFromPosition(NewVec3(1, 0, 0))
	child.Parent = parent

	// The child's world matrix applies its own offset, then the parent's.
	assert.Equal(t, Vec3{1, 2, 0}, NewVec3Zero().Transform(child.GetWorld()))

	// Parent motion is picked up without touching the child.
	parent.SetPosition(NewVec3(0, 0, 4))
	assert.Equal(t, Vec3{1, 0, 4}, NewVec3Zero().Transform(child.GetWorld()))
}

func TestTransformParentScalePropagates(t *testing.T) {
	parent := TransformFromPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3(2, 2, 2))
	child := TransformFromPosition(NewVec3(3, 0, 0))
	child.Parent = parent

	// The child's offset is expressed in the parent's space, so it scales too.
	assert.Equal(t, Vec3{6, 0, 0}, NewVec3Zero().Transform(child.GetWorld()))
}

func TestTransformParentRotationAffectsChildOffset(t *testing.T) {
	parent := TransformFromRotation(NewQuatFromAxisAngle(NewVec3(0, 0, 1), K_HALF_PI, true))
	child := TransformFromPosition(NewVec3(1, 0, 0))
	child.Parent = parent

	assertVec3Near(t, Vec3{0, -1, 0}, NewVec3Zero().Transform(child.GetWorld()))
}

func TestTransformRotateComposes(t *testing.T) {
	tr := TransformCreate()
	quarter := NewQuatFromAxisAngle(NewVec3(0, 0, 1), K_HALF_PI, true)
	tr.Rotate(quarter)
	tr.Rotate(quarter)

	// Two quarter turns about z flip the x axis.
	assertVec3Near(t, Vec3{-1, 0, 0}, NewVec3Right().Transform(tr.GetWorld()))
}
