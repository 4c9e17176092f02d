package opcua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopcua/opcua/ua"

	"github.com/forgeio/gateway/internal/tags"
)

// badStatus is an arbitrary non-OK status code (the Bad severity bit set),
// used only to exercise the quality-mapping branch.
const badStatus = ua.StatusCode(0x80000000)

func TestVariantToTagValueMapsEachScalarKind(t *testing.T) {
	boolVariant, err := ua.NewVariant(true)
	require.NoError(t, err)
	tv := variantToTagValue(boolVariant, ua.StatusOK)
	assert.Equal(t, tags.KindBool, tv.Value.Kind)
	assert.True(t, tv.Value.Bool)
	assert.Equal(t, tags.QualityGood, tv.Quality)

	intVariant, err := ua.NewVariant(int32(-7))
	require.NoError(t, err)
	tv = variantToTagValue(intVariant, ua.StatusOK)
	assert.Equal(t, tags.KindSignedInt, tv.Value.Kind)
	assert.EqualValues(t, -7, tv.Value.SignedInt)

	uintVariant, err := ua.NewVariant(uint32(7))
	require.NoError(t, err)
	tv = variantToTagValue(uintVariant, ua.StatusOK)
	assert.Equal(t, tags.KindUnsignedInt, tv.Value.Kind)
	assert.EqualValues(t, 7, tv.Value.UnsignedInt)

	floatVariant, err := ua.NewVariant(3.5)
	require.NoError(t, err)
	tv = variantToTagValue(floatVariant, ua.StatusOK)
	assert.Equal(t, tags.KindFloat, tv.Value.Kind)
	assert.Equal(t, 3.5, tv.Value.Float)

	stringVariant, err := ua.NewVariant("hello")
	require.NoError(t, err)
	tv = variantToTagValue(stringVariant, ua.StatusOK)
	assert.Equal(t, tags.KindText, tv.Value.Kind)
	assert.Equal(t, "hello", tv.Value.Text)
}

func TestVariantToTagValueBadStatusYieldsBadQualityRegardlessOfPayload(t *testing.T) {
	v, err := ua.NewVariant(int32(1))
	require.NoError(t, err)
	tv := variantToTagValue(v, badStatus)
	assert.Equal(t, tags.QualityBad, tv.Quality)
}

func TestVariantToTagValueNilVariantIsNull(t *testing.T) {
	tv := variantToTagValue(nil, ua.StatusOK)
	assert.Equal(t, tags.KindNull, tv.Value.Kind)
	assert.Equal(t, tags.QualityGood, tv.Quality)
}

func TestTagValueToVariantConvertsScalarKinds(t *testing.T) {
	cases := []tags.TagValue{
		tags.NewTagValue(tags.BoolValue(true), tags.QualityGood),
		tags.NewTagValue(tags.SignedIntValue(-42), tags.QualityGood),
		tags.NewTagValue(tags.UnsignedIntValue(42), tags.QualityGood),
		tags.NewTagValue(tags.FloatValue(1.5), tags.QualityGood),
		tags.NewTagValue(tags.TextValue("hi"), tags.QualityGood),
	}
	for _, tv := range cases {
		v, err := tagValueToVariant(tv)
		require.NoError(t, err)
		require.NotNil(t, v)
	}
}
