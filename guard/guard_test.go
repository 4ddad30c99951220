package guard

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGuard(t *testing.T) {
	require.NoError(t, Guard(true, "never"))
	err := Guard(false, "agent ID is required")
	require.Error(t, err)
	assert.Equal(t, "agent ID is required", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, IsValidationError(err))
}

func TestNotNil(t *testing.T) {
	var nilPtr *int
	var nilMap map[string]int
	var nilFunc func()
	one := 1
	tests := []struct {
		name  string
		value any
		fails bool
	}{
		{"untyped nil", nil, true},
		{"typed nil pointer", nilPtr, true},
		{"nil map", nilMap, true},
		{"nil func", nilFunc, true},
		{"pointer", &one, false},
		{"zero int", 0, false},
		{"empty string", "", false},
		{"empty map", map[string]int{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotNil(tt.value, "value is required")
			if tt.fails {
				require.Error(t, err)
				assert.Equal(t, "value is required", err.Error())
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNotEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value string
		fails bool
	}{
		{"empty", "", true},
		{"spaces", "   ", true},
		{"tabs and newlines", "\t\n", true},
		{"text", "asst_1", false},
		{"padded text", "  x  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotEmpty(tt.value, "must not be empty")
			assert.Equal(t, tt.fails, err != nil)
		})
	}
}

func TestNotEmptySliceAndMap(t *testing.T) {
	assert.Error(t, NotEmptySlice([]int(nil), "empty"))
	assert.Error(t, NotEmptySlice([]string{}, "empty"))
	assert.NoError(t, NotEmptySlice([]string{"a"}, "empty"))

	assert.Error(t, NotEmptyMap(map[string]any(nil), "empty"))
	assert.Error(t, NotEmptyMap(map[string]any{}, "empty"))
	assert.NoError(t, NotEmptyMap(map[string]any{"k": nil}, "empty"))
}

func TestNoDuplicates(t *testing.T) {
	tests := []struct {
		name  string
		value []string
		fails bool
	}{
		{"nil", nil, false},
		{"empty", []string{}, false},
		{"unique", []string{"a", "b", "c"}, false},
		{"repeated", []string{"a", "b", "a"}, true},
		{"adjacent", []string{"x", "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NoDuplicates(tt.value, "duplicated function names")
			if tt.fails {
				require.Error(t, err)
				assert.Equal(t, "duplicated function names", err.Error())
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNoDuplicatesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("fails iff the set of elements is smaller than the list", prop.ForAll(
		func(xs []int) bool {
			unique := make(map[int]struct{}, len(xs))
			for _, x := range xs {
				unique[x] = struct{}{}
			}
			hasDup := len(unique) < len(xs)
			return (NoDuplicates(xs, "dup") != nil) == hasDup
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.Property("appending an existing element always fails", prop.ForAll(
		func(xs []string) bool {
			if len(xs) == 0 {
				return true
			}
			return NoDuplicates(append(xs, xs[0]), "dup") != nil
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestFirst(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	assert.NoError(t, First())
	assert.NoError(t, First(nil, nil))
	assert.Same(t, a, First(nil, a, b))
}

func TestValidationError_Unwrap(t *testing.T) {
	cause := errors.New("missing property 'foo'")
	err := &ValidationError{Reason: "invalid arguments", Err: cause}
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid arguments", err.Error())
}
