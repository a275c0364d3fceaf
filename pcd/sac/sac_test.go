package sac

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/seqsense/pcalign/mat"
	"github.com/seqsense/pcalign/pcd"
	"github.com/seqsense/pcalign/pcd/registration/transformation"
)

func TestSAC(t *testing.T) {
	src := []mat.Vec3{
		{0.0, 0.0, 0.0},
		{1.0, 0.0, 0.1},
		{0.0, 1.0, 0.2},
		{1.0, 1.0, 0.6}, // outlier
		{0.5, 0.2, 0.0},
		{0.2, 0.8, 0.4},
		{0.9, 0.4, 0.3},
		{0.3, 0.3, 0.9},
		{0.6, 0.9, 0.1},
		{0.4, 0.6, 0.7},
		{0.7, 0.1, 0.5}, // outlier
	}
	trans := mat.Translate(0.5, -0.2, 0.1).Mul(mat.Rotate(0, 0, 1, 0.4))
	tgt := make([]mat.Vec3, len(src))
	for i, p := range src {
		tgt[i] = trans.TransformAffine(p)
	}
	tgt[3] = tgt[3].Add(mat.Vec3{0.5, 0, 0})
	tgt[10] = tgt[10].Add(mat.Vec3{0, 0.3, -0.3})

	m := NewRegistrationModel(
		pcd.NewSliceRandomAccessor(src),
		pcd.NewSliceRandomAccessor(tgt),
		transformation.SVD{},
		0.05, 0.1,
	)

	s := New(NewRandomSampler(len(src), rand.New(rand.NewSource(1))), m)
	if ok := s.Compute(100); !ok {
		t.Fatal("SAC.Compute should succeed")
	}

	indice := s.Coefficients().Inliers(0.05)
	expectedIndice := []int{0, 1, 2, 4, 5, 6, 7, 8, 9}
	if !reflect.DeepEqual(expectedIndice, indice) {
		t.Errorf("Expected inlier: %v, got: %v", expectedIndice, indice)
	}
	if n := s.NumInliers(); n != len(expectedIndice) {
		t.Errorf("Expected %d inliers, got %d", len(expectedIndice), n)
	}

	c, ok := s.Coefficients().(interface{ Transformation() mat.Mat4 })
	if !ok {
		t.Fatal("Coefficients must expose the transformation")
	}
	if tr := c.Transformation(); !tr.Equal(trans, 1e-3) {
		t.Errorf("Expected transformation:\n%v\ngot:\n%v", trans, tr)
	}
}

func TestSACDegenerate(t *testing.T) {
	src := []mat.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	m := NewRegistrationModel(
		pcd.NewSliceRandomAccessor(src),
		pcd.NewSliceRandomAccessor(src),
		transformation.SVD{},
		0.05, 0.1,
	)
	s := New(NewRandomSampler(len(src), rand.New(rand.NewSource(1))), m)
	if ok := s.Compute(50); ok {
		t.Error("SAC.Compute must fail on collinear samples")
	}
}
