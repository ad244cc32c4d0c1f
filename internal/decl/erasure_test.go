package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEraser(t *testing.T) {
	e := DefaultEraser{ValueTypes: map[string]bool{"S": true}}
	tests := []struct {
		in   TypeRef
		want string
	}{
		{"int", "int"},
		{"System.Int32", "int"},
		{"string?", "string"},
		{"int?", "Nullable<int>"},
		{"S?", "Nullable<S>"},
		{"dynamic", "object"},
		{"List<dynamic>", "List<object>"},
		{"List<string?>", "List<string>"},
		{"(int a, string b)", "ValueTuple<int,string>"},
		{"(int x, string y)", "ValueTuple<int,string>"},
		{"int[]", "int[]"},
		{"int[ , ]", "int[,]"},
		{"string?[]", "string[]"},
		{"nint", "IntPtr"},
		{"int*", "int*"},
		{"global::System.String", "string"},
		{"Dictionary<string, (int a, int b)?>", "Dictionary<string,Nullable<ValueTuple<int,int>>>"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, e.Erase(tt.in))
		})
	}
}
