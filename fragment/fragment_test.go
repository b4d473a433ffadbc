package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalo-lang/thalo/ast"
)

func TestParseMetadataValueFragment(t *testing.T) {
	result := Parse(`"open"`, StartMetadataValue)
	require.True(t, result.Valid)
	require.NotNil(t, result.Value)
	assert.Equal(t, ast.ValueQuoted, result.Value.Kind)
	assert.Equal(t, "open", result.Value.Quoted)
}

func TestParseLinkValueFragment(t *testing.T) {
	result := Parse("^ada", StartMetadataValue)
	require.True(t, result.Valid)
	require.NotNil(t, result.Value)
	assert.Equal(t, ast.ValueLink, result.Value.Kind)
	assert.Equal(t, "ada", result.Value.Link)
}

func TestParseTypeExpressionFragment(t *testing.T) {
	result := Parse("string | number", StartTypeExpression)
	require.True(t, result.Valid)
	require.NotNil(t, result.Type)
	require.Equal(t, ast.TypeUnion, result.Type.Kind)
	require.Len(t, result.Type.Members, 2)
	assert.Equal(t, "string", result.Type.Members[0].Primitive)
	assert.Equal(t, "number", result.Type.Members[1].Primitive)
}

func TestParseUnknownTypeExpressionFragmentIsInvalid(t *testing.T) {
	result := Parse("bogus-type", StartTypeExpression)
	assert.False(t, result.Valid)
	require.NotNil(t, result.Type)
	assert.Equal(t, ast.TypeSyntaxError, result.Type.Kind)
}

func TestParseQueryFragment(t *testing.T) {
	result := Parse(`person where role = "mathematician"`, StartQuery)
	require.True(t, result.Valid)
	require.NotNil(t, result.Query)
	assert.Equal(t, "person", result.Query.Entity)
	require.Len(t, result.Query.Conditions, 1)
	assert.Equal(t, "role", result.Query.Conditions[0].Field)
}

func TestParseEmptyFragmentIsInvalid(t *testing.T) {
	result := Parse("   ", StartMetadataValue)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}
