package opcua

import (
	"github.com/gopcua/opcua/ua"

	"github.com/forgeio/gateway/internal/tags"
)

// variantToTagValue maps an incoming OPC UA variant/status pair to the core
// TagValue model by width-preserving promotion (signed → int64, unsigned →
// uint64, single/double → float64), per spec.md §4.2. A bad status code
// yields Quality Bad rather than erroring the whole batch; only
// session-level failure does that. Unsupported variant types yield a Null
// payload whose quality still follows the status code.
func variantToTagValue(v *ua.Variant, status ua.StatusCode) tags.TagValue {
	quality := tags.QualityBad
	if status == ua.StatusOK {
		quality = tags.QualityGood
	}

	if v == nil {
		return tags.NewTagValue(tags.NullValue(), quality)
	}

	var value tags.Value
	switch v.Type() {
	case ua.TypeIDBoolean:
		value = tags.BoolValue(v.Bool())
	case ua.TypeIDSByte, ua.TypeIDInt16, ua.TypeIDInt32, ua.TypeIDInt64:
		value = tags.SignedIntValue(v.Int())
	case ua.TypeIDByte, ua.TypeIDUint16, ua.TypeIDUint32, ua.TypeIDUint64:
		value = tags.UnsignedIntValue(v.Uint())
	case ua.TypeIDFloat, ua.TypeIDDouble:
		value = tags.FloatValue(v.Float())
	case ua.TypeIDString:
		value = tags.TextValue(v.String())
	case ua.TypeIDLocalizedText:
		if lt, ok := v.Value().(*ua.LocalizedText); ok && lt != nil {
			value = tags.TextValue(lt.Text)
		} else {
			value = tags.NullValue()
		}
	default:
		// Unsupported variant: Null payload, quality follows the status
		// code per spec.md §8 boundary behavior.
		value = tags.NullValue()
	}

	return tags.NewTagValue(value, quality)
}

// tagValueToVariant maps an outgoing core TagValue to its OPC UA variant
// type for writes: Bool→Boolean, SignedInt→Int32, UnsignedInt→UInt32,
// Float→Double, Text→String. Not reachable in this release (Write always
// returns ErrNotImplemented) but kept ready per spec.md §4.2.
func tagValueToVariant(tv tags.TagValue) (*ua.Variant, error) {
	switch tv.Value.Kind {
	case tags.KindBool:
		return ua.NewVariant(tv.Value.Bool)
	case tags.KindSignedInt:
		return ua.NewVariant(int32(tv.Value.SignedInt))
	case tags.KindUnsignedInt:
		return ua.NewVariant(uint32(tv.Value.UnsignedInt))
	case tags.KindFloat:
		return ua.NewVariant(tv.Value.Float)
	case tags.KindText:
		return ua.NewVariant(tv.Value.Text)
	default:
		return ua.NewVariant(nil)
	}
}
