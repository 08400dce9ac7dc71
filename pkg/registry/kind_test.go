// pkg/registry/kind_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test registry type normalization across all naming schemes

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchctl/pkg/errors"
	"touchctl/pkg/registry"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want registry.Kind
	}{
		{name: "numeric_dword", in: 4, want: registry.KindDWord},
		{name: "numeric_float_from_json", in: float64(4), want: registry.KindDWord},
		{name: "numeric_qword", in: 11, want: registry.KindQWord},
		{name: "winapi_name", in: "REG_DWORD", want: registry.KindDWord},
		{name: "winapi_alias", in: "REG_DWORD_LITTLE_ENDIAN", want: registry.KindDWord},
		{name: "winapi_sz", in: "REG_SZ", want: registry.KindString},
		{name: "winapi_expand", in: "REG_EXPAND_SZ", want: registry.KindExpandString},
		{name: "winapi_multi", in: "REG_MULTI_SZ", want: registry.KindMultiString},
		{name: "bare_name_gets_prefix", in: "SZ", want: registry.KindString},
		{name: "kind_name", in: "DWORD", want: registry.KindDWord},
		{name: "kind_name_expandstring", in: "EXPANDSTRING", want: registry.KindExpandString},
		{name: "friendly_casing", in: "DWord", want: registry.KindDWord},
		{name: "friendly_multistring", in: "MultiString", want: registry.KindMultiString},
		{name: "lowercase", in: "qword", want: registry.KindQWord},
		{name: "whitespace_trimmed", in: "  binary  ", want: registry.KindBinary},
		{name: "none_kind", in: "NONE", want: registry.KindNone},
		{name: "reg_none_is_unsupported_code", in: "REG_NONE", want: registry.KindUnknown},

		// Unsupported codes normalize to the unknown sentinel, never fail
		{name: "reg_link_unsupported", in: "REG_LINK", want: registry.KindUnknown},
		{name: "big_endian_unsupported", in: 5, want: registry.KindUnknown},
		{name: "resource_list_unsupported", in: "REG_RESOURCE_LIST", want: registry.KindUnknown},
		{name: "out_of_range_code", in: 99, want: registry.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []interface{}{4, "REG_DWORD", "DWORD", "DWord", "REG_LINK", 99, -1}

	for _, in := range inputs {
		first, err := registry.Normalize(in)
		require.NoError(t, err)
		second, err := registry.Normalize(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "Normalize(Normalize(%v)) must equal Normalize(%v)", in, in)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := registry.Normalize("REG_BOGUS")
	assert.Equal(t, errors.ErrInvalidInput, errors.GetErrorCode(err))

	_, err = registry.Normalize("not a type")
	assert.Equal(t, errors.ErrInvalidInput, errors.GetErrorCode(err))

	_, err = registry.Normalize(struct{}{})
	assert.Equal(t, errors.ErrInvalidInput, errors.GetErrorCode(err))
}

func TestKindName(t *testing.T) {
	tests := []struct {
		in       interface{}
		name     string
		friendly string
	}{
		{in: 4, name: "DWORD", friendly: "DWord"},
		{in: "REG_SZ", name: "STRING", friendly: "String"},
		{in: "REG_EXPAND_SZ", name: "EXPANDSTRING", friendly: "ExpandString"},
		{in: 11, name: "QWORD", friendly: "QWord"},
		{in: -1, name: "NONE", friendly: "None"},
		// unsupported codes surface as the sentinel's name
		{in: "REG_LINK", name: "UNKNOWN", friendly: "Unknown"},
	}

	for _, tt := range tests {
		name, err := registry.KindName(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.name, name)

		friendly, err := registry.FriendlyName(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.friendly, friendly)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "DWord", registry.KindDWord.String())
	assert.Equal(t, "Unknown", registry.Kind(42).String())
}
