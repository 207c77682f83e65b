package finding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFinding(urls []string, pkgs map[Ecosystem][]string) Finding {
	b := NewBuilder()
	for _, u := range urls {
		b.AddURL(u)
	}
	for eco, names := range pkgs {
		for _, n := range names {
			b.AddPackage(eco, n)
		}
	}
	return b.Build()
}

func TestUnion_Commutative(t *testing.T) {
	a := buildFinding(
		[]string{"https://github.com/acme/tool", "https://docs.acme.io/guide"},
		map[Ecosystem][]string{EcosystemNPM: {"left-pad", "acme-internal"}, EcosystemPyPI: {"flask"}},
	)
	b := buildFinding(
		[]string{"https://docs.acme.io/guide", "https://status.acme.io/page"},
		map[Ecosystem][]string{EcosystemNPM: {"left-pad"}, EcosystemGem: {"rails"}},
	)

	ab := Union(Union(Empty(), a), b)
	ba := Union(Union(Empty(), b), a)

	assert.True(t, ab.Equal(ba))
	assert.Equal(t, ab.URLs(), ba.URLs())
	assert.Equal(t, []string{"acme-internal", "left-pad"}, ab.Packages(EcosystemNPM))
	assert.Equal(t, []string{"rails"}, ab.Packages(EcosystemGem))
	assert.Equal(t, 3, ab.URLCount())
}

func TestUnion_AssociativeAndIdempotent(t *testing.T) {
	a := buildFinding([]string{"https://a.example.dev/x"}, map[Ecosystem][]string{EcosystemGo: {"modx"}})
	b := buildFinding([]string{"https://b.example.dev/y"}, nil)
	c := buildFinding(nil, map[Ecosystem][]string{EcosystemGo: {"mody"}})

	left := Union(Union(a, b), c)
	right := Union(a, Union(b, c))
	assert.True(t, left.Equal(right))
	assert.True(t, Union(a, a).Equal(a))
}

func TestUnion_DoesNotMutateOperands(t *testing.T) {
	a := buildFinding([]string{"https://a.example.dev/x"}, nil)
	b := buildFinding([]string{"https://b.example.dev/y"}, map[Ecosystem][]string{EcosystemNPM: {"pkg-b"}})

	_ = Union(a, b)

	assert.Equal(t, 1, a.URLCount())
	assert.Zero(t, a.PackageCount())
}

func TestBuilder_BuildResets(t *testing.T) {
	b := NewBuilder()
	b.AddURL("https://one.example.dev/a")
	first := b.Build()
	b.AddURL("https://two.example.dev/b")

	assert.Equal(t, []string{"https://one.example.dev/a"}, first.URLs())
}

func TestBuilder_IgnoresEmpty(t *testing.T) {
	b := NewBuilder()
	b.AddURL("")
	b.AddPackage(EcosystemNPM, "")
	assert.True(t, b.Build().IsEmpty())
}

func TestZeroFindingIsUsable(t *testing.T) {
	var f Finding
	assert.Empty(t, f.URLs())
	assert.Empty(t, f.PackageRefs())
	assert.True(t, Union(f, Empty()).IsEmpty())
}

func TestAccumulator_MergeOrderIndependent(t *testing.T) {
	a := buildFinding([]string{"https://a.example.dev/x"}, map[Ecosystem][]string{EcosystemNPM: {"alpha"}})
	b := buildFinding([]string{"https://b.example.dev/y"}, map[Ecosystem][]string{EcosystemPyPI: {"beta"}})

	acc1 := NewAccumulator()
	acc1.Merge(a)
	acc1.Merge(b)

	acc2 := NewAccumulator()
	acc2.Merge(b)
	acc2.Merge(a)

	assert.True(t, acc1.Snapshot().Equal(acc2.Snapshot()))
	assert.Equal(t, 2, acc1.Merged())
}

func TestAccumulator_DeltaReportsOnlyNewSubjects(t *testing.T) {
	acc := NewAccumulator()
	first := acc.Merge(buildFinding(
		[]string{"https://a.example.dev/x"},
		map[Ecosystem][]string{EcosystemNPM: {"alpha"}},
	))
	require.Len(t, first.URLs, 1)
	require.Len(t, first.Packages, 1)

	second := acc.Merge(buildFinding(
		[]string{"https://a.example.dev/x", "https://c.example.dev/z"},
		map[Ecosystem][]string{EcosystemNPM: {"alpha", "gamma"}},
	))
	assert.Equal(t, []string{"https://c.example.dev/z"}, second.URLs)
	assert.Equal(t, []PackageRef{{Ecosystem: EcosystemNPM, Name: "gamma"}}, second.Packages)

	third := acc.Merge(buildFinding([]string{"https://c.example.dev/z"}, nil))
	assert.True(t, third.IsEmpty())
}

func TestAccumulator_SnapshotIsStable(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(buildFinding([]string{"https://a.example.dev/x"}, nil))
	snap := acc.Snapshot()
	acc.Merge(buildFinding([]string{"https://b.example.dev/y"}, nil))

	assert.Equal(t, 1, snap.URLCount())
	assert.Equal(t, 2, acc.Snapshot().URLCount())
}

func TestAccumulator_ConcurrentMerge(t *testing.T) {
	acc := NewAccumulator()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acc.Merge(buildFinding(
				[]string{"https://shared.example.dev/page"},
				map[Ecosystem][]string{EcosystemNPM: {string(rune('a'+i)) + "-pkg"}},
			))
		}(i)
	}
	wg.Wait()

	snap := acc.Snapshot()
	assert.Equal(t, 1, snap.URLCount())
	assert.Equal(t, 20, snap.PackageCount())
	assert.Equal(t, 20, acc.Merged())
}

func TestParseEcosystem(t *testing.T) {
	tests := map[string]Ecosystem{
		"npm":        EcosystemNPM,
		"PyPI":       EcosystemPyPI,
		"rubygems":   EcosystemGem,
		"go-modules": EcosystemGo,
	}
	for in, want := range tests {
		got, err := ParseEcosystem(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseEcosystem("cargo")
	assert.Error(t, err)
}

func TestEcosystemsOrder(t *testing.T) {
	assert.Equal(t, []Ecosystem{EcosystemNPM, EcosystemPyPI, EcosystemGem, EcosystemGo}, Ecosystems())
	assert.Equal(t, "NPM", EcosystemNPM.Title())
	assert.True(t, EcosystemGo.Valid())
	assert.False(t, Ecosystem("cargo").Valid())
}
