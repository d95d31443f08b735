// Package contracts holds the ABIs of the pool contracts and encodes calls against them.
package contracts

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/pooldash/internal/apperror"
)

// Kind tags a contract ABI.
type Kind string

const (
	BPool                 Kind = "BPool"
	BActions              Kind = "BActions"
	BFactory              Kind = "BFactory"
	DSProxy               Kind = "DSProxy"
	DSProxyRegistry       Kind = "DSProxyRegistry"
	TestToken             Kind = "TestToken"
	ExchangeProxy         Kind = "ExchangeProxy"
	ExchangeProxyCallable Kind = "ExchangeProxyCallable"
	Weth                  Kind = "Weth"
	Multicall             Kind = "Multicall"
)

// Call is one entry of a Multicall aggregate.
type Call struct {
	Target   common.Address
	CallData []byte
}

var schema = map[Kind]abi.ABI{
	BPool:                 mustParse(bPoolABI),
	BActions:              mustParse(bActionsABI),
	BFactory:              mustParse(bFactoryABI),
	DSProxy:               mustParse(dsProxyABI),
	DSProxyRegistry:       mustParse(dsProxyRegistryABI),
	TestToken:             mustParse(testTokenABI),
	ExchangeProxy:         mustParse(exchangeProxyABI),
	ExchangeProxyCallable: mustParse(exchangeProxyCallableABI),
	Weth:                  mustParse(wethABI),
	Multicall:             mustParse(multicallABI),
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid ABI: %v", err))
	}
	return parsed
}

// ParseKind resolves a kind tag. Matching is case-sensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := schema[k]; !ok {
		return "", apperror.New(apperror.CodeUnknownContractKind, apperror.WithContext(s))
	}
	return k, nil
}

// ABI returns the parsed ABI of kind.
func ABI(kind Kind) (abi.ABI, error) {
	parsed, ok := schema[kind]
	if !ok {
		return abi.ABI{}, apperror.New(apperror.CodeUnknownContractKind, apperror.WithContext(string(kind)))
	}
	return parsed, nil
}

// Method returns the ABI method of kind named name.
func Method(kind Kind, name string) (abi.Method, error) {
	parsed, err := ABI(kind)
	if err != nil {
		return abi.Method{}, err
	}
	m, ok := parsed.Methods[name]
	if !ok {
		return abi.Method{}, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithMessage("method not found in ABI"),
			apperror.WithContext(string(kind)+"."+name))
	}
	return m, nil
}

// Encode packs a call to method with Go-typed params.
func Encode(kind Kind, method string, params ...interface{}) ([]byte, error) {
	parsed, err := ABI(kind)
	if err != nil {
		return nil, err
	}
	if _, err := Method(kind, method); err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, params...)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(string(kind)+"."+method))
	}
	return data, nil
}

// Decode unpacks the return data of method.
func Decode(kind Kind, method string, data []byte) ([]interface{}, error) {
	parsed, err := ABI(kind)
	if err != nil {
		return nil, err
	}
	out, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(string(kind)+"."+method))
	}
	return out, nil
}

// ConvertArgs turns JSON-decoded values (strings, bools, arrays, objects)
// into the Go types the ABI packer expects for method's inputs.
func ConvertArgs(kind Kind, method string, raw []interface{}) ([]interface{}, error) {
	m, err := Method(kind, method)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(m.Inputs) {
		return nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithMessage(fmt.Sprintf("expected %d arguments, got %d", len(m.Inputs), len(raw))),
			apperror.WithContext(string(kind)+"."+method))
	}

	args := make([]interface{}, len(raw))
	for i, in := range m.Inputs {
		v, err := convert(in.Type, raw[i])
		if err != nil {
			return nil, apperror.New(apperror.CodeEncodingFailed,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s.%s arg %q", kind, method, in.Name)))
		}
		args[i] = v.Interface()
	}
	return args, nil
}

var bigIntType = reflect.TypeOf(&big.Int{})

func convert(t abi.Type, v interface{}) (reflect.Value, error) {
	switch t.T {
	case abi.AddressTy:
		s, ok := v.(string)
		if !ok || !common.IsHexAddress(s) {
			return reflect.Value{}, fmt.Errorf("invalid address %v", v)
		}
		return reflect.ValueOf(common.HexToAddress(s)), nil

	case abi.UintTy, abi.IntTy:
		n, err := toBig(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return reflect.Value{}, fmt.Errorf("negative value for %s", t.String())
		}
		if n.BitLen() > t.Size {
			return reflect.Value{}, fmt.Errorf("value overflows %s", t.String())
		}
		goType := t.GetType()
		if goType == bigIntType {
			return reflect.ValueOf(n), nil
		}
		if t.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(goType), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(goType), nil

	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return reflect.Value{}, fmt.Errorf("invalid bool %v", v)
		}
		return reflect.ValueOf(b), nil

	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("invalid string %v", v)
		}
		return reflect.ValueOf(s), nil

	case abi.BytesTy:
		b, err := toBytes(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil

	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(b) != t.Size {
			return reflect.Value{}, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr, nil

	case abi.SliceTy, abi.ArrayTy:
		items, ok := v.([]interface{})
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected array for %s", t.String())
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return reflect.Value{}, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			ev, err := convert(*t.Elem, item)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case abi.TupleTy:
		fields, ok := v.(map[string]interface{})
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected object for %s", t.String())
		}
		out := reflect.New(t.GetType()).Elem()
		for i, name := range t.TupleRawNames {
			raw, ok := fields[name]
			if !ok {
				return reflect.Value{}, fmt.Errorf("missing field %q", name)
			}
			fv, err := convert(*t.TupleElems[i], raw)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %q: %w", name, err)
			}
			out.FieldByName(abi.ToCamelCase(name)).Set(fv)
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("unsupported ABI type %s", t.String())
}

func toBig(v interface{}) (*big.Int, error) {
	switch x := v.(type) {
	case string:
		n, ok := new(big.Int).SetString(x, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
		return n, nil
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("non-integer number %v", x)
		}
		return big.NewInt(int64(x)), nil
	case *big.Int:
		return new(big.Int).Set(x), nil
	}
	return nil, fmt.Errorf("invalid integer %v", v)
}

func toBytes(v interface{}) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected hex string, got %v", v)
	}
	return hexutil.Decode(s)
}
