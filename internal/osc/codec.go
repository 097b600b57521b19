package osc

import (
	"strings"

	goosc "github.com/hypebeast/go-osc/osc"
)

// AddressPrefix is the fixed address space the peer uses for avatar
// parameters; messages outside it are ignored.
const AddressPrefix = "/avatar/parameters/"

// DecodePacket parses one datagram and returns every avatar parameter it
// carries. Bundles are flattened recursively, messages before nested
// bundles at each level. Unparseable data, foreign addresses, missing
// arguments, and unsupported argument types all yield nothing rather
// than an error.
func DecodePacket(data []byte) []Parameter {
	packet, err := goosc.ParsePacket(string(data))
	if err != nil {
		return nil
	}
	return extractParameters(packet, nil)
}

func extractParameters(packet goosc.Packet, out []Parameter) []Parameter {
	switch p := packet.(type) {
	case *goosc.Message:
		if param, ok := messageParameter(p); ok {
			out = append(out, param)
		}
	case *goosc.Bundle:
		// go-osc splits bundle elements into Messages and Bundles and
		// drops their interleaving, so a message listed after a nested
		// bundle is still visited first. Upserts from a name appearing
		// in both can therefore land out of wire order.
		for _, msg := range p.Messages {
			out = extractParameters(msg, out)
		}
		for _, nested := range p.Bundles {
			out = extractParameters(nested, out)
		}
	}
	return out
}

// messageParameter extracts a parameter from one message. Only the first
// argument is consulted.
func messageParameter(msg *goosc.Message) (Parameter, bool) {
	name, ok := strings.CutPrefix(msg.Address, AddressPrefix)
	if !ok || name == "" {
		return Parameter{}, false
	}
	if len(msg.Arguments) == 0 {
		return Parameter{}, false
	}

	switch v := msg.Arguments[0].(type) {
	case float32:
		return Parameter{Name: name, Kind: KindFloat, Value: v}, true
	case float64:
		return Parameter{Name: name, Kind: KindFloat, Value: float32(v)}, true
	case int32:
		return Parameter{Name: name, Kind: KindInt, Value: float32(v)}, true
	case int64:
		return Parameter{Name: name, Kind: KindInt, Value: float32(v)}, true
	case bool:
		value := float32(0)
		if v {
			value = 1
		}
		return Parameter{Name: name, Kind: KindBool, Value: value}, true
	default:
		return Parameter{}, false
	}
}

// EncodeMessage builds a single-message packet carrying one argument
// typed per kind: Float passes through, Int truncates toward zero, and
// Bool thresholds at 0.5.
func EncodeMessage(name string, kind Kind, value float32) *goosc.Message {
	msg := goosc.NewMessage(AddressPrefix + name)
	switch kind {
	case KindInt:
		msg.Append(int32(value))
	case KindBool:
		msg.Append(value > 0.5)
	default:
		msg.Append(value)
	}
	return msg
}
