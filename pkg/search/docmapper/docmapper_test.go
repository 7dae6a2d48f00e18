package docmapper

import (
	"testing"

	"github.com/quidditch/quidditch/pkg/search"
	"github.com/stretchr/testify/require"
)

const testMapping = `
fields:
  - name: body
    type: text
    indexed: true
  - name: internal_id
    type: u64
    indexed: false
`

func TestSchema_IsIndexed(t *testing.T) {
	var schema Schema
	require.NoError(t, unmarshalFixture(t, &schema))

	require.True(t, schema.IsIndexed("body"))
	require.False(t, schema.IsIndexed("internal_id"))
	require.False(t, schema.IsIndexed("nonexistent"))
}

func TestBuilder_BuildRoundTrip(t *testing.T) {
	mapper, err := NewBuilder().Build(search.IndexDescriptor{IndexID: "idx1", DocMapping: testMapping})
	require.NoError(t, err)

	require.NoError(t, mapper.ValidateQuery(search.SearchRequest{SearchFields: []string{"body"}}))
	require.Error(t, mapper.ValidateQuery(search.SearchRequest{SearchFields: []string{"internal_id"}}))
	require.Error(t, mapper.ValidateQuery(search.SearchRequest{SearchFields: []string{"nonexistent"}}))

	serialized, err := mapper.Serialize()
	require.NoError(t, err)
	require.Contains(t, serialized, "body")
}

func TestBuilder_BuildInvalidYAML(t *testing.T) {
	_, err := NewBuilder().Build(search.IndexDescriptor{IndexID: "idx1", DocMapping: "not: [valid: yaml"})
	require.Error(t, err)
}

func TestDocMapper_ValidateListTermsField(t *testing.T) {
	mapper, err := NewBuilder().Build(search.IndexDescriptor{IndexID: "idx1", DocMapping: testMapping})
	require.NoError(t, err)

	require.NoError(t, mapper.ValidateListTermsField("body"))
	require.Error(t, mapper.ValidateListTermsField("internal_id"))
	require.Error(t, mapper.ValidateListTermsField("missing"))
}

func unmarshalFixture(t *testing.T, schema *Schema) error {
	t.Helper()
	mapper, err := NewBuilder().Build(search.IndexDescriptor{DocMapping: testMapping})
	require.NoError(t, err)
	*schema = mapper.(*DocMapper).Schema()
	return nil
}
