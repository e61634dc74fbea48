package config

import "strings"

// RepeatableValue implements pflag.Value for flags that may be given
// multiple times (--path-auth, --proxy, --mime-type, --header), the way
// the teacher defines custom flag value types in cmd/caddy/*.go.
type RepeatableValue struct {
	values []string
}

func NewRepeatableValue() *RepeatableValue {
	return &RepeatableValue{}
}

func (r *RepeatableValue) String() string {
	return strings.Join(r.values, ",")
}

func (r *RepeatableValue) Set(s string) error {
	r.values = append(r.values, s)
	return nil
}

func (r *RepeatableValue) Type() string {
	return "stringArray"
}

func (r *RepeatableValue) Values() []string {
	return r.values
}
