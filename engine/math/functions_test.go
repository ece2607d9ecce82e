package math

import "testing"

func mat4Near(a, b Mat4, tolerance float32) bool {
	for i := range a.Data {
		if abs32(a.Data[i]-b.Data[i]) > tolerance {
			return false
		}
	}
	return true
}

func vec4Near(a, b Vec4, tolerance float32) bool {
	return abs32(a.X-b.X) <= tolerance &&
		abs32(a.Y-b.Y) <= tolerance &&
		abs32(a.Z-b.Z) <= tolerance &&
		abs32(a.W-b.W) <= tolerance
}

func TestMat4MulIdentity(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3)).Mul(NewMat4Scale(NewVec3(2, 2, 2)))
	if got := m.Mul(NewMat4Identity()); !mat4Near(got, m, 0) {
		t.Errorf("M*I != M: %v", got)
	}
	if got := NewMat4Identity().Mul(m); !mat4Near(got, m, 0) {
		t.Errorf("I*M != M: %v", got)
	}
}

func TestMat4MulComposesRightToLeft(t *testing.T) {
	translate := NewMat4Translation(NewVec3(10, 0, 0))
	scale := NewMat4Scale(NewVec3(2, 2, 2))

	// T*S scales first, so the unit point lands at 12, not 22.
	m := translate.Mul(scale)
	got := m.MulVec4(NewVec4(1, 0, 0, 1))
	if !vec4Near(got, NewVec4(12, 0, 0, 1), 1e-5) {
		t.Errorf("T*S*(1,0,0,1) = %v, want (12,0,0,1)", got)
	}
}

func TestMat4InverseRoundTrip(t *testing.T) {
	rotation := NewQuatFromAxisAngle(NewVec3(0, 1, 0), DegToRad(37), true)
	m := NewMat4Translation(NewVec3(1, -2, 3)).
		Mul(rotation.ToMat4()).
		Mul(NewMat4Scale(NewVec3(2, 3, 4)))

	if got := m.Inverse().Mul(m); !mat4Near(got, NewMat4Identity(), 1e-4) {
		t.Errorf("Minv*M != I: %v", got)
	}
}

func TestQuatAxisAngleRotatesVector(t *testing.T) {
	// Quarter turn around Z sends +X to +Y.
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), DegToRad(90), true)
	got := q.ToMat4().MulVec4(NewVec4(1, 0, 0, 1))
	if !vec4Near(got, NewVec4(0, 1, 0, 1), 1e-5) {
		t.Errorf("rotated +X to %v, want +Y", got)
	}
}

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	eye := NewVec3(4, 2, -7)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3Up())
	got := view.MulVec4(eye.ToVec4(1))
	if !vec4Near(got, NewVec4(0, 0, 0, 1), 1e-4) {
		t.Errorf("view*eye = %v, want origin", got)
	}
}

func TestPerspectiveMapsNearAndFarPlanes(t *testing.T) {
	near, far := float32(0.1), float32(100.0)
	proj := NewMat4Perspective(DegToRad(45), 16.0/9.0, near, far)

	onNear := proj.MulVec4(NewVec4(0, 0, -near, 1))
	if ndc := onNear.Z / onNear.W; abs32(ndc+1) > 1e-4 {
		t.Errorf("near plane projects to %f, want -1", ndc)
	}
	onFar := proj.MulVec4(NewVec4(0, 0, -far, 1))
	if ndc := onFar.Z / onFar.W; abs32(ndc-1) > 1e-4 {
		t.Errorf("far plane projects to %f, want 1", ndc)
	}
}

func TestVec3Normalized(t *testing.T) {
	v := NewVec3(3, 4, 0).Normalized()
	if !v.Compare(NewVec3(0.6, 0.8, 0), 1e-6) {
		t.Errorf("normalized (3,4,0) = %v", v)
	}
	zero := NewVec3Zero().Normalized()
	if !zero.Compare(NewVec3Zero(), 0) {
		t.Errorf("normalizing zero changed it: %v", zero)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5,0,3) = %d", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Errorf("Clamp(-1,0,3) = %d", got)
	}
	if got := Clamp(float32(1.5), 0, 3); got != 1.5 {
		t.Errorf("Clamp(1.5,0,3) = %f", got)
	}
}

func TestTransformRebuildsLazily(t *testing.T) {
	tr := TransformFromPosition(NewVec3(1, 0, 0))
	if !tr.IsDirty {
		t.Fatal("fresh transform should be dirty")
	}

	local := tr.GetLocal()
	if tr.IsDirty {
		t.Error("GetLocal should clear the dirty flag")
	}
	want := NewMat4Translation(NewVec3(1, 0, 0))
	if !mat4Near(local, want, 0) {
		t.Errorf("local = %v, want pure translation", local)
	}

	tr.Translate(NewVec3(0, 2, 0))
	if !tr.IsDirty {
		t.Error("Translate should mark the transform dirty")
	}
	moved := tr.GetLocal()
	if !mat4Near(moved, NewMat4Translation(NewVec3(1, 2, 0)), 1e-6) {
		t.Errorf("moved local = %v", moved)
	}
}
