// Package domain defines access condition sets: ordered boolean combinations
// of predicates that gate decryption.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operator joins two adjacent operands of a set.
type Operator string

const (
	AndOperator Operator = "and"
	OrOperator  Operator = "or"
)

// UserAddressParameter is replaced by the requester's address when a condition is evaluated.
const UserAddressParameter = ":userAddress"

// ReturnValueTest compares the result of the predicate call with Value.
type ReturnValueTest struct {
	Comparator string `json:"comparator"`
	Value      string `json:"value"`
}

// Condition is a single predicate. Field order is the canonical key order.
type Condition struct {
	ContractAddress      string          `json:"contractAddress"`
	StandardContractType string          `json:"standardContractType"`
	Chain                string          `json:"chain"`
	Method               string          `json:"method"`
	Parameters           []string        `json:"parameters"`
	ReturnValueTest      ReturnValueTest `json:"returnValueTest"`
}

// Node is exactly one of a predicate, an operator or a nested group.
type Node struct {
	Condition *Condition
	Operator  Operator
	Group     Set
}

// Set is an ordered sequence of nodes: operands separated by operators.
type Set []Node

// Predicate returns a node holding c.
func Predicate(c Condition) Node {
	return Node{Condition: &c}
}

// Op returns an operator node.
func Op(operator Operator) Node {
	return Node{Operator: operator}
}

// GroupOf returns a nested group node.
func GroupOf(nodes ...Node) Node {
	return Node{Group: Set(nodes)}
}

// IsOperator reports whether n is an operator node.
func (n Node) IsOperator() bool {
	return n.Condition == nil && n.Group == nil && n.Operator != ""
}

// IsGroup reports whether n is a nested group.
func (n Node) IsGroup() bool {
	return n.Group != nil
}

type operatorJSON struct {
	Operator Operator `json:"operator"`
}

// MarshalJSON renders a predicate as an object, an operator as
// {"operator": ...} and a group as an array.
func (n Node) MarshalJSON() ([]byte, error) {
	switch {
	case n.Condition != nil:
		return marshal(n.Condition)
	case n.Group != nil:
		return marshal(n.Group)
	case n.Operator != "":
		return marshal(operatorJSON{Operator: n.Operator})
	default:
		return nil, fmt.Errorf("empty condition node")
	}
}

// marshal encodes v as compact JSON without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON accepts the three node forms produced by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var group Set
		if err := json.Unmarshal(data, &group); err != nil {
			return err
		}
		if group == nil {
			group = Set{}
		}
		*n = Node{Group: group}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["operator"]; ok {
		if len(fields) != 1 {
			return fmt.Errorf("operator node must not carry other fields")
		}
		var operator Operator
		if err := json.Unmarshal(raw, &operator); err != nil {
			return err
		}
		*n = Node{Operator: operator}
		return nil
	}

	var condition Condition
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&condition); err != nil {
		return err
	}
	*n = Node{Condition: &condition}
	return nil
}
