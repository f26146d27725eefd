package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	err := Newf("cannot crop: store has no epochs").
		Component("epochs").
		Category(CategoryState).
		Context("n_epochs", 0).
		Build()

	assert.Equal(t, "cannot crop: store has no epochs", err.Error())
	assert.Equal(t, "epochs", err.GetComponent())
	assert.Equal(t, string(CategoryState), err.GetCategory())
	assert.Equal(t, 0, err.GetContext()["n_epochs"])
}

func TestIsCategory(t *testing.T) {
	err := ValidationError("tmin must not exceed tmax")
	assert.True(t, IsValidation(err))
	assert.False(t, IsState(err))
	assert.True(t, IsCategory(err, CategoryValidation))
}

func TestReportingHook(t *testing.T) {
	t.Cleanup(ClearReportingHooks)

	var got *EnhancedError
	AddReportingHook(func(ee *EnhancedError) { got = ee })

	err := Newf("boom").Category(CategoryFileIO).Build()
	require.NotNil(t, got)
	assert.Same(t, err, got)
	assert.True(t, err.IsReported())
}

func TestContextCopyIsolation(t *testing.T) {
	err := Newf("x").Context("k", "v").Build()
	ctx := err.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", err.GetContext()["k"])
}
