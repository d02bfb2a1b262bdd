package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolver(t *testing.T, rules ...Rule) *Resolver {
	t.Helper()
	r, err := NewResolver(rules)
	require.NoError(t, err)
	return r
}

func TestResolve_PrefixReplacement(t *testing.T) {
	r := mustResolver(t, Rule{Name: "vendor", Replacement: "lib/vendor/"})

	assert.Equal(t, "lib/vendor/jquery.js", r.Resolve("vendor!jquery.js"))
	assert.Equal(t, "lib/vendor/", r.Resolve("vendor!"))
}

func TestResolve_WholeTargetReplacement(t *testing.T) {
	r := mustResolver(t, Rule{Name: "jquery", Replacement: "vendor/jquery-1.7.js"})

	assert.Equal(t, "vendor/jquery-1.7.js", r.Resolve("jquery!anything"))
}

func TestResolve_Unmatched(t *testing.T) {
	r := mustResolver(t, Rule{Name: "vendor", Replacement: "lib/"})

	assert.Equal(t, "src/app.js", r.Resolve("src/app.js"))
	assert.Equal(t, "vendors!x.js", r.Resolve("vendors!x.js"))
	assert.Equal(t, "a/vendor!x.js", r.Resolve("a/vendor!x.js"), "rule only matches as a prefix")
}

// A rewritten target no longer carries the "name!" marker, so a later rule
// keyed on the replacement path does not fire.
func TestResolve_OrderedRulesFirstOnly(t *testing.T) {
	r := mustResolver(t,
		Rule{Name: "a", Replacement: "x/"},
		Rule{Name: "x", Replacement: "y/"},
	)

	assert.Equal(t, "x/foo", r.Resolve("a!foo"))
	assert.Equal(t, "y/foo", r.Resolve("x!foo"))
}

// A replacement that produces another alias marker is picked up by a later rule.
func TestResolve_OrderedRulesChain(t *testing.T) {
	r := mustResolver(t,
		Rule{Name: "a", Replacement: "b!lib/"},
		Rule{Name: "b", Replacement: "vendor/"},
	)

	assert.Equal(t, "vendor/lib/foo", r.Resolve("a!foo"))
}

// Rules are applied in a single pass: an earlier rule never sees the output of a later one.
func TestResolve_SinglePass(t *testing.T) {
	r := mustResolver(t,
		Rule{Name: "b", Replacement: "vendor/"},
		Rule{Name: "a", Replacement: "b!lib/"},
	)

	assert.Equal(t, "b!lib/foo", r.Resolve("a!foo"))
}

func TestResolve_SelfReferentialRulesTerminate(t *testing.T) {
	r := mustResolver(t,
		Rule{Name: "a", Replacement: "b!"},
		Rule{Name: "b", Replacement: "a!/"},
	)

	assert.Equal(t, "a!/", r.Resolve("a!x"))
}

func TestResolve_MetaCharactersInName(t *testing.T) {
	r := mustResolver(t, Rule{Name: "my.lib", Replacement: "lib/"})

	assert.Equal(t, "lib/x.js", r.Resolve("my.lib!x.js"))
	assert.Equal(t, "myXlib!x.js", r.Resolve("myXlib!x.js"))
}

func TestNewResolver_RejectsEmptyName(t *testing.T) {
	_, err := NewResolver([]Rule{{Name: "", Replacement: "x/"}})
	require.Error(t, err)
}

func TestResolve_NilResolver(t *testing.T) {
	var r *Resolver
	assert.Equal(t, "vendor!x", r.Resolve("vendor!x"))
	assert.Nil(t, r.Rules())
}

func TestRules_PreservesOrder(t *testing.T) {
	rules := []Rule{{Name: "z", Replacement: "1/"}, {Name: "a", Replacement: "2/"}}
	r := mustResolver(t, rules...)
	assert.Equal(t, rules, r.Rules())
}
