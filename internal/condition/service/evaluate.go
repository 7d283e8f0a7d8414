package service

import (
	"strings"

	conditionDomain "github.com/allisson/sessionsig/internal/condition/domain"
	"github.com/allisson/sessionsig/internal/errors"
)

// Environment holds the facts a predicate can be evaluated against.
type Environment struct {
	// UserAddress replaces the :userAddress parameter.
	UserAddress string
}

// Evaluate reports whether env satisfies set. Only address ownership
// predicates are supported: an empty contract address and method, the single
// parameter :userAddress, and an equality comparator. "and" binds tighter
// than "or".
func Evaluate(set conditionDomain.Set, env Environment) (bool, error) {
	if err := Validate(set); err != nil {
		return false, err
	}
	return evaluateSet(set, env)
}

func evaluateSet(set conditionDomain.Set, env Environment) (bool, error) {
	result := false
	term := true
	for i := 0; i < len(set); i += 2 {
		value, err := evaluateOperand(set[i], env)
		if err != nil {
			return false, err
		}
		term = term && value

		if i+1 == len(set) || set[i+1].Operator == conditionDomain.OrOperator {
			result = result || term
			term = true
		}
	}
	return result, nil
}

func evaluateOperand(node conditionDomain.Node, env Environment) (bool, error) {
	if node.IsGroup() {
		return evaluateSet(node.Group, env)
	}

	c := node.Condition
	if c.ContractAddress != "" || c.Method != "" ||
		len(c.Parameters) != 1 || c.Parameters[0] != conditionDomain.UserAddressParameter {
		return false, errors.Field(conditionDomain.ErrInvalidCondition, "conditions", "unsupported predicate")
	}

	equal := env.UserAddress != "" && strings.EqualFold(env.UserAddress, c.ReturnValueTest.Value)
	switch c.ReturnValueTest.Comparator {
	case "=", "==":
		return equal, nil
	case "!=":
		return !equal, nil
	default:
		return false, errors.Field(
			conditionDomain.ErrInvalidCondition,
			"comparator",
			"unsupported comparator "+c.ReturnValueTest.Comparator,
		)
	}
}
