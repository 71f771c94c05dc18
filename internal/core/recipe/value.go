package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"recipe-finder/internal/pkg/common"
)

// Kind 標示 Value 的實際型別
type Kind uint8

const (
	Absent Kind = iota
	Null
	String
	Number
	Bool
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "absent"
	}
}

// Value 鬆散型別的輸入值（JSON-LD 節點、模型輸出、抓取結果）。
// 零值為 Absent；Number 保留原始字面值。
type Value struct {
	kind Kind
	str  string
	b    bool
	obj  map[string]Value
	arr  []Value
}

// StringValue 建立字串值
func StringValue(s string) Value { return Value{kind: String, str: s} }

// NumberValue 建立數字值
func NumberValue(f float64) Value {
	return Value{kind: Number, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// BoolValue 建立布林值
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// ObjectValue 建立物件值
func ObjectValue(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: Object, obj: fields}
}

// ArrayValue 建立陣列值
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// ParseValue 解析 JSON 文字
func ParseValue(data string) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON([]byte(data)); err != nil {
		return Value{}, err
	}
	return v, nil
}

// FromAny 轉換 encoding/json 解出的任意值
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{kind: Null}
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case json.Number:
		return Value{kind: Number, str: t.String()}
	case float64:
		return NumberValue(t)
	case int:
		return NumberValue(float64(t))
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, v := range t {
			fields[k] = FromAny(v)
		}
		return ObjectValue(fields)
	case []any:
		items := make([]Value, len(t))
		for i, v := range t {
			items[i] = FromAny(v)
		}
		return ArrayValue(items...)
	case Value:
		return t
	default:
		return StringValue(fmt.Sprint(t))
	}
}

// Kind 回傳型別
func (v Value) Kind() Kind { return v.kind }

// IsAbsent 不存在或為 null
func (v Value) IsAbsent() bool { return v.kind == Absent || v.kind == Null }

// Get 取得物件欄位；非物件或無此欄位時回傳 Absent
func (v Value) Get(key string) Value {
	if v.kind != Object {
		return Value{}
	}
	return v.obj[key]
}

// First 依序取第一個存在的欄位
func (v Value) First(keys ...string) Value {
	for _, k := range keys {
		if f := v.Get(k); !f.IsAbsent() {
			return f
		}
	}
	return Value{}
}

// Keys 回傳排序後的物件欄位名稱
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items 陣列元素；非陣列回傳 nil
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

// List 將值視為序列：Absent 為空、陣列原樣、其他包成單元素
func (v Value) List() []Value {
	switch v.kind {
	case Absent, Null:
		return nil
	case Array:
		return v.arr
	default:
		return []Value{v}
	}
}

// Str 只有字串型別才回傳 true
func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.str, true
}

// Text 純量的文字表示；物件、陣列與 Absent 回傳空字串
func (v Value) Text() string {
	switch v.kind {
	case String, Number:
		return v.str
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float 數字值，或可完整解析為數字的字串
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		f, err := strconv.ParseFloat(v.str, 64)
		return f, err == nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// With 回傳設定欄位後的新物件，原值不變；非物件時視為空物件
func (v Value) With(key string, field Value) Value {
	fields := make(map[string]Value, len(v.obj)+1)
	for k, f := range v.obj {
		fields[k] = f
	}
	fields[key] = field
	return ObjectValue(fields)
}

// UnmarshalJSON 以 UseNumber 解析，數字保留原始字面值
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := common.ParseJSONBytes(data, &x); err != nil {
		return err
	}
	*v = FromAny(x)
	return nil
}

// MarshalJSON Absent 與 Null 皆輸出 null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case String:
		return json.Marshal(v.str)
	case Number:
		return []byte(v.str), nil
	case Bool:
		return json.Marshal(v.b)
	case Object:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}
