package service

import (
	"fmt"
	"regexp"
	"strings"

	"dataloom/internal/domain"
	"dataloom/internal/payload"

	"github.com/pkg/errors"
)

// evaluateConditions decides whether a transformation applies to one
// payload element. No conditions means it always applies; multiple
// conditions are implicitly AND-ed. Each condition combines its own test
// with its subexpressions left to right using the declared joins,
// short-circuiting where the outcome is already decided.
func evaluateConditions(conditions []domain.Condition, element interface{}) (bool, error) {
	for _, condition := range conditions {
		matched, err := evaluateCondition(condition, element)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func evaluateCondition(condition domain.Condition, element interface{}) (bool, error) {
	result, err := evaluateTest(element, condition.Key, condition.Operator, condition.Value)
	if err != nil {
		return false, err
	}

	for _, sub := range condition.Subexpressions {
		switch sub.Join {
		case domain.JoinAnd:
			if !result {
				continue // already false, AND cannot recover it
			}
			matched, err := evaluateTest(element, sub.Key, sub.Operator, sub.Value)
			if err != nil {
				return false, err
			}
			result = matched
		case domain.JoinOr:
			if result {
				continue // already true, OR cannot lose it
			}
			matched, err := evaluateTest(element, sub.Key, sub.Operator, sub.Value)
			if err != nil {
				return false, err
			}
			result = matched
		default:
			return false, errors.Errorf("unknown subexpression join %q", sub.Join)
		}
	}

	return result, nil
}

func evaluateTest(element interface{}, key string, op domain.Operator, expected interface{}) (bool, error) {
	actual, found := payload.Walk(element, key)
	if !found {
		// A key the payload does not carry fails every test except
		// not-equals.
		return op == domain.OpNotEquals, nil
	}

	switch op {
	case domain.OpEquals:
		return looseEqual(actual, expected), nil
	case domain.OpNotEquals:
		return !looseEqual(actual, expected), nil
	case domain.OpContains:
		return strings.Contains(toString(actual), toString(expected)), nil
	case domain.OpIn:
		options, ok := expected.([]interface{})
		if !ok {
			return false, errors.Errorf("operator %q requires an array value", op)
		}
		for _, option := range options {
			if looseEqual(actual, option) {
				return true, nil
			}
		}
		return false, nil
	case domain.OpGreater, domain.OpLess:
		left, err := toFloat(actual)
		if err != nil {
			return false, err
		}
		right, err := toFloat(expected)
		if err != nil {
			return false, err
		}
		if op == domain.OpGreater {
			return left > right, nil
		}
		return left < right, nil
	case domain.OpRegex:
		pattern, ok := expected.(string)
		if !ok {
			return false, errors.Errorf("operator %q requires a string pattern", op)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, errors.Wrapf(err, "compiling condition pattern %q", pattern)
		}
		return re.MatchString(toString(actual)), nil
	default:
		return false, errors.Errorf("unknown operator %q", op)
	}
}

// looseEqual compares across the numeric types JSON decoding produces,
// so 5 matches 5.0 and string comparison stays strict.
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}

	af, aerr := toFloat(a)
	bf, berr := toFloat(b)
	if aerr == nil && berr == nil {
		_, aIsString := a.(string)
		_, bIsString := b.(string)
		if !aIsString && !bIsString {
			return af == bf
		}
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
