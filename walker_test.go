package fionn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingVisitor struct {
	events []string
}

func (v *recordingVisitor) VisitObjectStart(p Path, count int) error {
	v.events = append(v.events, "objStart:"+p.String())
	return nil
}
func (v *recordingVisitor) VisitObjectEnd(p Path) error {
	v.events = append(v.events, "objEnd:"+p.String())
	return nil
}
func (v *recordingVisitor) VisitArrayStart(p Path, count int) error {
	v.events = append(v.events, "arrStart:"+p.String())
	return nil
}
func (v *recordingVisitor) VisitArrayEnd(p Path) error {
	v.events = append(v.events, "arrEnd:"+p.String())
	return nil
}
func (v *recordingVisitor) VisitScalar(p Path, n Node) error {
	v.events = append(v.events, "scalar:"+p.String()+"="+n.Str)
	return nil
}

func TestWalkVisitsInOrder(t *testing.T) {
	tp := abTape(t)
	v := &recordingVisitor{}
	require.NoError(t, Walk(tp, v))
	assert.Equal(t, []string{
		"objStart:",
		"scalar:.a=1",
		"arrStart:.b",
		"scalar:.b[0]=2",
		"scalar:.b[1]=3",
		"arrEnd:.b",
		"objEnd:",
	}, v.events)
}

type skippingVisitor struct {
	recordingVisitor
	skipField string
}

func (v *skippingVisitor) VisitArrayStart(p Path, count int) error {
	if p.String() == "."+v.skipField {
		return ErrSkipVisit
	}
	return v.recordingVisitor.VisitArrayStart(p, count)
}

func TestWalkErrSkipVisitJumpsSubtree(t *testing.T) {
	tp := abTape(t)
	v := &skippingVisitor{skipField: "b"}
	require.NoError(t, Walk(tp, v))
	assert.Equal(t, []string{"objStart:", "scalar:.a=1", "objEnd:"}, v.events)
}
