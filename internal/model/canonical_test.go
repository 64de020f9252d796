package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalComponentCanonical_SortedKeys(t *testing.T) {
	data := NewComponentData(map[string]Value{
		"zeta":  Int(1),
		"alpha": Int(2),
		"mid":   Int(3),
	})
	out, err := MarshalComponentCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(out))
}

func TestMarshalComponentCanonical_UTF16KeyOrder(t *testing.T) {
	// U+FF5E (fullwidth tilde) encodes as one UTF-16 unit 0xFF5E, while
	// U+1F600 encodes as the surrogate pair 0xD83D 0xDE00. In code unit
	// order the emoji sorts first, the opposite of code point order.
	data := NewComponentData(map[string]Value{
		"～":     Int(1),
		"\U0001F600": Int(2),
	})
	out, err := MarshalComponentCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"～\":1}", string(out))
}

func TestMarshalComponentCanonical_NFCNormalization(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	data := NewComponentData(map[string]Value{
		"label": String("café"),
	})
	out, err := MarshalComponentCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, "{\"label\":\"café\"}", string(out))
}

func TestMarshalComponentCanonical_NoHTMLEscaping(t *testing.T) {
	data := NewComponentData(map[string]Value{
		"text": String(`a<b & "c"`),
	})
	out, err := MarshalComponentCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"a<b & \"c\""}`, string(out))
}

func TestMarshalComponentCanonical_ControlCharacters(t *testing.T) {
	data := NewComponentData(map[string]Value{
		"text": String("a\nb\tc"),
	})
	out, err := MarshalComponentCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"a\nb\tc"}`, string(out))
}

func TestMarshalComponentsCanonical_Deterministic(t *testing.T) {
	parts := map[ComponentKind]ComponentData{
		"Position": NewComponentData(map[string]Value{"p": Point{X: 1, Y: 2}}),
		"Flow":     NewComponentData(map[string]Value{"rate": Float(2)}),
	}

	first, err := MarshalComponentsCanonical(parts)
	require.NoError(t, err)
	assert.Equal(t, `{"Flow":{"rate":2.0},"Position":{"p":{"x":1.0,"y":2.0}}}`, string(first))

	// Repeated marshalling of the same bundles yields identical bytes.
	for i := 0; i < 8; i++ {
		again, err := MarshalComponentsCanonical(parts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	parts := map[ComponentKind]ComponentData{
		"Arrow": NewComponentData(map[string]Value{
			"origin": Ref(3),
			"target": Ref(7),
		}),
		"Description": NewComponentData(map[string]Value{
			"text":  String("pipe"),
			"notes": Null{},
		}),
	}
	enc, err := MarshalComponentsCanonical(parts)
	require.NoError(t, err)

	decoded, err := UnmarshalComponents(enc)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for kind, want := range parts {
		got, ok := decoded[kind]
		require.True(t, ok, "kind %q", kind)
		assert.True(t, want.Equal(got), "kind %q", kind)
	}
}
