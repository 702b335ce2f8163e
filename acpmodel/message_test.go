package acpmodel

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagePartValidate(t *testing.T) {
	cases := []struct {
		name    string
		part    MessagePart
		wantErr error
	}{
		{"content only", MessagePart{ContentType: ContentTypeText, Content: "hi"}, nil},
		{"url only", MessagePart{ContentType: ContentTypeText, ContentURL: "https://x/y"}, nil},
		{"neither", MessagePart{ContentType: ContentTypeText}, ErrInvalidPart},
		{"both", MessagePart{ContentType: ContentTypeText, Content: "hi", ContentURL: "https://x/y"}, ErrInvalidPart},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.part.Validate()
			if c.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.wantErr)
			}
		})
	}
}

func TestMessagePartValidateRequiresContentType(t *testing.T) {
	err := MessagePart{Content: "hi"}.Validate()
	require.Error(t, err)
}

func TestIsArtifact(t *testing.T) {
	assert.True(t, MessagePart{Name: "report.txt"}.IsArtifact())
	assert.False(t, MessagePart{}.IsArtifact())
}

func TestTextPart(t *testing.T) {
	p := TextPart("hello")
	assert.Equal(t, ContentTypeText, p.ContentType)
	assert.Equal(t, EncodingPlain, p.ContentEncoding)
	assert.Equal(t, "hello", p.Content)
	assert.Empty(t, p.Name)
}

func TestMessageAppendPreservesRoleAndOrder(t *testing.T) {
	a := Message{Role: "user", Parts: []MessagePart{TextPart("a")}}
	b := Message{Role: "ignored", Parts: []MessagePart{TextPart("b"), TextPart("c")}}

	got := a.Append(b)

	assert.Equal(t, "user", got.Role)
	require.Len(t, got.Parts, 3)
	assert.Equal(t, "a", got.Parts[0].Content)
	assert.Equal(t, "b", got.Parts[1].Content)
	assert.Equal(t, "c", got.Parts[2].Content)

	// Append must not mutate the receiver's backing array.
	assert.Len(t, a.Parts, 1)
}

func TestCompressFusesAdjacentPlainTextParts(t *testing.T) {
	m := Message{Parts: []MessagePart{
		TextPart("Hello, "),
		TextPart("world"),
		TextPart("!"),
	}}

	got := m.Compress()

	require.Len(t, got.Parts, 1)
	assert.Equal(t, "Hello, world!", got.Parts[0].Content)
}

func TestCompressDoesNotFuseArtifactsOrURLParts(t *testing.T) {
	m := Message{Parts: []MessagePart{
		TextPart("intro"),
		{Name: "data.csv", ContentType: "text/csv", Content: "a,b"},
		TextPart("outro"),
		{ContentType: ContentTypeText, ContentURL: "https://example.com/x"},
	}}

	got := m.Compress()

	require.Len(t, got.Parts, 4)
	assert.Equal(t, "intro", got.Parts[0].Content)
	assert.Equal(t, "data.csv", got.Parts[1].Name)
	assert.Equal(t, "outro", got.Parts[2].Content)
	assert.Equal(t, "https://example.com/x", got.Parts[3].ContentURL)
}

func TestCompressUnderTwoPartsIsNoop(t *testing.T) {
	m := Message{Parts: []MessagePart{TextPart("solo")}}
	assert.Equal(t, m, m.Compress())

	empty := Message{}
	assert.Equal(t, empty, empty.Compress())
}

// TestCompressProperty checks the two invariants the doc comment on
// Compress promises: idempotence, and that compressing never changes the
// concatenation of the parts' content.
func TestCompressProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genParts := gen.SliceOfN(6, gen.AlphaString().Map(func(s string) MessagePart {
		return TextPart(s)
	}))

	properties.Property("idempotent", prop.ForAll(
		func(parts []MessagePart) bool {
			m := Message{Parts: parts}
			once := m.Compress()
			twice := once.Compress()
			return messagesEqual(once, twice)
		},
		genParts,
	))

	properties.Property("content concatenation preserved", prop.ForAll(
		func(parts []MessagePart) bool {
			m := Message{Parts: parts}
			return concatContent(m) == concatContent(m.Compress())
		},
		genParts,
	))

	properties.TestingRun(t)
}

func concatContent(m Message) string {
	var out string
	for _, p := range m.Parts {
		out += p.Content
	}
	return out
}

func messagesEqual(a, b Message) bool {
	if a.Role != b.Role || len(a.Parts) != len(b.Parts) {
		return false
	}
	for i := range a.Parts {
		pa, pb := a.Parts[i], b.Parts[i]
		if pa.Name != pb.Name || pa.ContentType != pb.ContentType ||
			pa.ContentEncoding != pb.ContentEncoding || pa.Content != pb.Content ||
			pa.ContentURL != pb.ContentURL {
			return false
		}
	}
	return true
}
