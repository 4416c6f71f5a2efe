package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductInterestSetSemantics(t *testing.T) {
	var p ProductInterest
	p = p.With("cnc-components").With("cnc-components").With("electronics")
	assert.Equal(t, ProductInterest{"cnc-components", "electronics"}, p)

	p = p.Without("cnc-components").Without("missing")
	assert.Equal(t, ProductInterest{"electronics"}, p)
	assert.False(t, p.Contains("cnc-components"))
}

func TestProductInterestWithDoesNotAlias(t *testing.T) {
	base := make(ProductInterest, 1, 4)
	base[0] = "custom"

	a := base.With("sheet-metal")
	b := base.With("assemblies")

	assert.Equal(t, ProductInterest{"custom", "sheet-metal"}, a)
	assert.Equal(t, ProductInterest{"custom", "assemblies"}, b)
}

func TestProductInterestStorageForm(t *testing.T) {
	p := ProductInterest{"cnc-components", "custom"}
	assert.Equal(t, "cnc-components,custom", p.String())

	v, err := p.Value()
	require.NoError(t, err)
	assert.Equal(t, "cnc-components,custom", v)

	parsed := ParseProductInterest(" cnc-components , custom,,cnc-components")
	assert.Equal(t, p, parsed)

	var scanned ProductInterest
	require.NoError(t, scanned.Scan([]byte("electronics")))
	assert.Equal(t, ProductInterest{"electronics"}, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestStatusParsing(t *testing.T) {
	s, err := ParseStatus(" in-progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusNew, StatusInProgress))
	assert.True(t, CanTransition(StatusNew, StatusCancelled))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))
	assert.True(t, CanTransition(StatusCompleted, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusNew))
	assert.False(t, CanTransition(StatusNew, StatusCompleted))
}

func TestCatalog(t *testing.T) {
	assert.True(t, IsCatalogProduct("injection-molding"))
	assert.False(t, IsCatalogProduct("x"))
	assert.True(t, RequestSupport.Valid())
	assert.False(t, RequestType("other").Valid())
}
