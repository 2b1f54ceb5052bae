package validation

import (
	"testing"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `json:"city" validate:"required"`
}

type account struct {
	ID      string  `json:"id" validate:"required,uuid"`
	Email   string  `json:"email" validate:"required,email"`
	Age     int     `json:"age" validate:"gte=0,lte=150"`
	Address address `json:"address"`
}

func validAccount() account {
	return account{
		ID:      "7f1d2c1e-6a55-4c43-9b8b-3d1f3c2e9a10",
		Email:   "ada@example.com",
		Age:     36,
		Address: address{City: "London"},
	}
}

func TestStruct_Valid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Struct(validAccount()))
}

func TestStruct_ReportsJSONPaths(t *testing.T) {
	t.Parallel()

	a := validAccount()
	a.Email = "not-an-email"
	a.Address.City = ""

	err := Struct(&a)

	var failures Errors
	require.ErrorAs(t, err, &failures)
	require.Len(t, failures, 2)
	assert.Equal(t, errs.FieldFailure{InstancePath: "/email", Message: "must be a valid email address", Keyword: "email"}, failures[0])
	assert.Equal(t, errs.FieldFailure{InstancePath: "/address/city", Message: "is required", Keyword: "required"}, failures[1])
	assert.Equal(t, "address/city", failures[1].Field())
}

func TestErrors_Failures(t *testing.T) {
	t.Parallel()

	e := Errors{{InstancePath: "/name", Message: "is required"}}

	assert.Equal(t, []errs.FieldFailure(e), e.Failures())
	assert.Equal(t, "Validation failed: name: is required", e.Error())
}

func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		proto   any
		value   any
		wantErr bool
		path    string
		keyword string
	}{
		{name: "nil prototype accepts anything", proto: nil, value: 42},
		{name: "same type", proto: account{}, value: validAccount()},
		{name: "pointer value", proto: account{}, value: func() *account { a := validAccount(); return &a }()},
		{
			name:    "same type missing field",
			proto:   &account{},
			value:   account{Email: "ada@example.com", Address: address{City: "x"}},
			wantErr: true, path: "/id", keyword: "required",
		},
		{
			name:  "map converted through json",
			proto: account{},
			value: map[string]any{
				"id": "7f1d2c1e-6a55-4c43-9b8b-3d1f3c2e9a10", "email": "ada@example.com",
				"address": map[string]any{"city": "Paris"},
			},
		},
		{
			name:    "map with wrong type",
			proto:   account{},
			value:   map[string]any{"age": "old"},
			wantErr: true, path: "/age", keyword: "type",
		},
		{
			name:    "map missing field",
			proto:   account{},
			value:   map[string]any{"id": "7f1d2c1e-6a55-4c43-9b8b-3d1f3c2e9a10", "address": map[string]any{"city": "Paris"}},
			wantErr: true, path: "/email", keyword: "required",
		},
		{
			name:    "slice element failure",
			proto:   []account{},
			value:   []account{validAccount(), {ID: "nope", Email: "ada@example.com", Address: address{City: "x"}}},
			wantErr: true, path: "/1/id", keyword: "uuid",
		},
		{
			name:    "nil pointer",
			proto:   account{},
			value:   (*account)(nil),
			wantErr: true, path: "", keyword: "type",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Value(tt.proto, tt.value)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var failures Errors
			require.ErrorAs(t, err, &failures)
			require.NotEmpty(t, failures)
			assert.Equal(t, tt.path, failures[0].InstancePath)
			assert.Equal(t, tt.keyword, failures[0].Keyword)
		})
	}
}

func TestInstancePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", instancePath("account"))
	assert.Equal(t, "/email", instancePath("account.email"))
	assert.Equal(t, "/lines/0/text", instancePath("doc.lines[0].text"))
}
