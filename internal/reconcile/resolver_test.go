package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jane Roe", "jane roe"},
		{"  JANE   ROE ", "jane roe"},
		{"Gaël Monfils", "gael monfils"},
		{"Stan Wawrinka\t", "stan wawrinka"},
		{"Dominik Köpfer", "dominik kopfer"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestProvisionalID(t *testing.T) {
	id := ProvisionalID("J.  Roe")
	assert.Equal(t, "name:j. roe", id)
	assert.True(t, IsProvisional(id))
	assert.False(t, IsProvisional("p1"))
}

func knownIndex() *NameIndex {
	ix := NewNameIndex()
	ix.Learn("p1", "Jane Roe")
	ix.Learn("p3", "Juan Martin del Potro")
	return ix
}

func TestResolve_URLIDWins(t *testing.T) {
	ix := knownIndex()

	// A near-match to Jane Roe's name never overrides the row's own ID.
	res := Resolve(ix, Ref{PlayerID: "p9", Name: "Jane Roe"}, Options{})
	assert.Equal(t, "p9", res.PlayerID)
	assert.Equal(t, MethodURL, res.Method)
}

func TestResolve_Exact(t *testing.T) {
	res := Resolve(knownIndex(), Ref{Name: "  JANE   roe"}, Options{})
	assert.Equal(t, "p1", res.PlayerID)
	assert.Equal(t, MethodExact, res.Method)
}

func TestResolve_InitialAndSurname(t *testing.T) {
	ix := knownIndex()

	res := Resolve(ix, Ref{Name: "J. Roe"}, Options{})
	assert.Equal(t, "p1", res.PlayerID)
	assert.Equal(t, MethodInitial, res.Method)

	res = Resolve(ix, Ref{Name: "J. del Potro"}, Options{})
	assert.Equal(t, "p3", res.PlayerID)

	res = Resolve(ix, Ref{Name: "K. Roe"}, Options{})
	assert.False(t, res.Resolved())
}

func TestResolve_InitialAmbiguous(t *testing.T) {
	ix := knownIndex()
	ix.Learn("p2", "John Roe")

	res := Resolve(ix, Ref{Name: "J. Roe"}, Options{})
	assert.False(t, res.Resolved())
	assert.Empty(t, res.PlayerID)
}

func TestResolve_Fuzzy(t *testing.T) {
	res := Resolve(knownIndex(), Ref{Name: "Jane Roee"}, Options{Threshold: 0.85})
	assert.Equal(t, "p1", res.PlayerID)
	assert.Equal(t, MethodFuzzy, res.Method)
	assert.GreaterOrEqual(t, res.Score, 0.85)
	assert.Less(t, res.Score, 1.0)
}

func TestResolve_FuzzyBelowThreshold(t *testing.T) {
	res := Resolve(knownIndex(), Ref{Name: "Bob Smith"}, Options{})
	assert.False(t, res.Resolved())
	assert.Equal(t, MethodUnresolved, res.Method)
}

func TestResolve_FuzzyTieIsUnresolved(t *testing.T) {
	ix := knownIndex()
	ix.Learn("p4", "Jane Rox")

	res := Resolve(ix, Ref{Name: "Jane Roo"}, Options{})
	assert.False(t, res.Resolved(), "two equally good matches must not pick one")
}

func TestResolve_ExactAmbiguous(t *testing.T) {
	ix := knownIndex()
	ix.Learn("p5", "Jane Roe")

	res := Resolve(ix, Ref{Name: "Jane Roe"}, Options{})
	assert.False(t, res.Resolved())
	assert.Equal(t, []string{"p1", "p5"}, ix.IDs("jane roe"))
}

func TestResolve_EmptyName(t *testing.T) {
	res := Resolve(knownIndex(), Ref{Name: "   "}, Options{})
	assert.False(t, res.Resolved())
}

func TestNameIndex_LearnIgnoresProvisional(t *testing.T) {
	ix := NewNameIndex()
	ix.Learn(ProvisionalID("Bob"), "Bob")
	ix.Learn("", "Bob")
	ix.Learn("p1", "")
	assert.Zero(t, ix.Len())

	ix.Learn("p1", "Jane Roe")
	ix.Learn("p1", "jane roe")
	assert.Equal(t, 1, ix.Len())
}

func TestResolve_PurityDoesNotMutateIndex(t *testing.T) {
	ix := knownIndex()
	before := ix.Len()

	Resolve(ix, Ref{Name: "Someone New"}, Options{})
	Resolve(ix, Ref{PlayerID: "p7", Name: "Other New"}, Options{})

	assert.Equal(t, before, ix.Len())
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "url", MethodURL.String())
	assert.Equal(t, "initial", MethodInitial.String())
	assert.Equal(t, "unresolved", MethodUnresolved.String())
}
