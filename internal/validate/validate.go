package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single violation at one node of the result tree.
type FieldError struct {
	Field   string
	Message string
}

// Result 验证结果树：本节点的错误 + 按子对象名分组的子结果
type Result struct {
	Errors   []FieldError
	Children map[string]*Result
}

func (r *Result) Valid() bool {
	if r == nil {
		return true
	}
	if len(r.Errors) > 0 {
		return false
	}
	for _, c := range r.Children {
		if !c.Valid() {
			return false
		}
	}
	return true
}

func (r *Result) child(name string) *Result {
	if r.Children == nil {
		r.Children = make(map[string]*Result)
	}
	c, ok := r.Children[name]
	if !ok {
		c = &Result{}
		r.Children[name] = c
	}
	return c
}

// Collect flattens a result tree into field path -> messages, nested errors
// keyed by child name. Pure function; the tree is finite and acyclic.
func Collect(r *Result) map[string][]string {
	out := make(map[string][]string)
	collect(r, "", out)
	return out
}

func collect(r *Result, prefix string, out map[string][]string) {
	if r == nil {
		return
	}
	for _, e := range r.Errors {
		key := joinPath(prefix, e.Field)
		out[key] = append(out[key], e.Message)
	}
	for name, c := range r.Children {
		collect(c, joinPath(prefix, name), out)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}

// Validator wraps go-playground/validator and renders violations as a Result tree.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

func (val *Validator) Validate(entity any) *Result {
	root := &Result{}
	err := val.v.Struct(entity)
	if err == nil {
		return root
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		root.Errors = append(root.Errors, FieldError{Message: err.Error()})
		return root
	}
	for _, fe := range ve {
		// StructNamespace 形如 User.Address.City，去掉根结构名后逐层下挂
		segs := strings.Split(fe.StructNamespace(), ".")
		if len(segs) > 1 {
			segs = segs[1:]
		}
		node := root
		for _, s := range segs[:len(segs)-1] {
			node = node.child(s)
		}
		node.Errors = append(node.Errors, FieldError{
			Field:   strings.ToLower(segs[len(segs)-1]),
			Message: fieldMessage(fe),
		})
	}
	return root
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
