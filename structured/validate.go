package structured

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/BaSui01/schemaflow/types"
)

// FieldError is one schema violation located by its JSON path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every violation found in one validation pass.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for i := range e.Errors {
		msgs = append(msgs, e.Errors[i].Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validate checks a decoded JSON value against a schema and returns a
// *ValidationErrors carrying every violation with its field path. A nil
// schema accepts everything.
func Validate(value any, schema *types.JSONSchema) error {
	if schema == nil {
		return nil
	}
	var errs []FieldError
	validateValue(value, schema, "", &errs)
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

// ValidatePayload applies dual-granularity validation to a normalized
// payload. Whole-payload validation against the descriptor's root schema
// runs first; when it fails, every record in the non-empty canonical
// collections is validated against the descriptor's item shape, and the
// first failing item's index and message are surfaced instead of the
// generic root error.
func ValidatePayload(payload types.NormalizedPayload, desc types.SchemaDescriptor) types.ValidationOutcome {
	if desc.IsZero() {
		return types.ValidOutcome()
	}

	if out, misplaced := misplacedCollection(payload, desc); misplaced {
		return out
	}

	rootErr := Validate(payload.AsMap(), desc.EffectiveRoot())
	if rootErr == nil {
		return types.ValidOutcome()
	}

	for _, key := range types.WrapperKeys() {
		records := payload.Records(key)
		if len(records) == 0 {
			continue
		}
		item := desc.ItemSchema(key)
		if item == nil {
			item = desc.Item
		}
		if item == nil {
			continue
		}
		for i, rec := range records {
			if err := Validate(rec, item); err != nil {
				return types.InvalidItemOutcome(
					fmt.Sprintf("item %d in %q failed: %v", i, key, err), key, i)
			}
		}
		return types.ValidOutcome()
	}

	return types.InvalidOutcome(fmt.Sprintf("validation failed: %v", rootErr))
}

// misplacedCollection catches data that normalized under the wrong wrapper
// key: the descriptor names one expected collection, that collection is
// empty, and another canonical collection holds records. Item-level
// validation of the stray records gives the most actionable message; when
// they happen to conform, the mismatch itself is reported.
func misplacedCollection(payload types.NormalizedPayload, desc types.SchemaDescriptor) (types.ValidationOutcome, bool) {
	if desc.WrapperKey == "" || desc.Item == nil {
		return types.ValidationOutcome{}, false
	}
	if len(payload.Records(desc.WrapperKey)) > 0 {
		return types.ValidationOutcome{}, false
	}

	for _, key := range types.WrapperKeys() {
		if key == desc.WrapperKey {
			continue
		}
		records := payload.Records(key)
		if len(records) == 0 {
			continue
		}
		for i, rec := range records {
			if err := Validate(rec, desc.Item); err != nil {
				return types.InvalidItemOutcome(
					fmt.Sprintf("item %d in %q failed: %v", i, key, err), key, i), true
			}
		}
		return types.InvalidOutcome(
			fmt.Sprintf("records found under %q but %q was requested", key, desc.WrapperKey)), true
	}
	return types.ValidationOutcome{}, false
}

func validateValue(value any, schema *types.JSONSchema, path string, errs *[]FieldError) {
	if schema == nil {
		return
	}

	if schema.Const != nil {
		if !equalValues(value, schema.Const) {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value must be %v", schema.Const)})
		}
		return
	}

	if len(schema.Enum) > 0 {
		found := false
		for _, ev := range schema.Enum {
			if equalValues(value, ev) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value must be one of: %v", schema.Enum)})
		}
	}

	switch schema.Type {
	case types.SchemaTypeString:
		validateString(value, schema, path, errs)
	case types.SchemaTypeNumber:
		validateNumber(value, schema, path, errs)
	case types.SchemaTypeInteger:
		validateInteger(value, schema, path, errs)
	case types.SchemaTypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected boolean, got %T", value)})
		}
	case types.SchemaTypeNull:
		if value != nil {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected null, got %T", value)})
		}
	case types.SchemaTypeObject:
		validateObject(value, schema, path, errs)
	case types.SchemaTypeArray:
		validateArray(value, schema, path, errs)
	}
}

func validateString(value any, schema *types.JSONSchema, path string, errs *[]FieldError) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected string, got %T", value)})
		return
	}

	if schema.MinLength != nil && len(str) < *schema.MinLength {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("string length %d is less than minimum %d", len(str), *schema.MinLength),
		})
	}
	if schema.MaxLength != nil && len(str) > *schema.MaxLength {
		*errs = append(*errs, FieldError{
			Path:    path,
			Message: fmt.Sprintf("string length %d exceeds maximum %d", len(str), *schema.MaxLength),
		})
	}
	if schema.Pattern != "" {
		matched, err := regexp.MatchString(schema.Pattern, str)
		if err != nil {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("invalid pattern %q: %v", schema.Pattern, err)})
		} else if !matched {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("string does not match pattern %q", schema.Pattern)})
		}
	}
}

func validateNumber(value any, schema *types.JSONSchema, path string, errs *[]FieldError) {
	num, ok := toFloat64(value)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected number, got %T", value)})
		return
	}
	validateNumericRange(num, schema, path, errs)
}

func validateInteger(value any, schema *types.JSONSchema, path string, errs *[]FieldError) {
	num, ok := toFloat64(value)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected integer, got %T", value)})
		return
	}
	if num != math.Trunc(num) {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected integer, got %v", num)})
		return
	}
	validateNumericRange(num, schema, path, errs)
}

func validateNumericRange(num float64, schema *types.JSONSchema, path string, errs *[]FieldError) {
	if schema.Minimum != nil && num < *schema.Minimum {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value %v is less than minimum %v", num, *schema.Minimum)})
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value %v exceeds maximum %v", num, *schema.Maximum)})
	}
}

func validateObject(value any, schema *types.JSONSchema, path string, errs *[]FieldError) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected object, got %T", value)})
		return
	}

	for _, req := range schema.Required {
		val, exists := obj[req]
		if !exists {
			*errs = append(*errs, FieldError{Path: joinPath(path, req), Message: "required field is missing"})
		} else if val == nil {
			*errs = append(*errs, FieldError{Path: joinPath(path, req), Message: "required field must not be null"})
		}
	}

	for propName, propValue := range obj {
		propPath := joinPath(path, propName)
		if propSchema, ok := schema.Properties[propName]; ok {
			validateValue(propValue, propSchema, propPath, errs)
			continue
		}
		if schema.AdditionalProperties != nil && !*schema.AdditionalProperties {
			*errs = append(*errs, FieldError{Path: propPath, Message: "additional property not allowed"})
		}
	}
}

func validateArray(value any, schema *types.JSONSchema, path string, errs *[]FieldError) {
	arr, ok := value.([]any)
	if !ok {
		// 规范载荷里的集合是 []Record，按元素逐个校验
		if records, isRecords := value.([]types.Record); isRecords {
			arr = make([]any, len(records))
			for i, rec := range records {
				arr[i] = map[string]any(rec)
			}
		} else {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected array, got %T", value)})
			return
		}
	}

	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems)})
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("array has %d items, maximum is %d", len(arr), *schema.MaxItems)})
	}

	if schema.Items != nil {
		for i, item := range arr {
			validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func equalValues(a, b any) bool {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr == bStr
	}

	aBool, aIsBool := a.(bool)
	bBool, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return aBool == bBool
	}

	return a == nil && b == nil
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}
