package tools_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/mocks/mocktools"
	"github.com/effective-security/finrecon/pkg/schema"
	"github.com/effective-security/finrecon/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type rateRequest struct {
	Currency string `json:"currency" validate:"required"`
}

func TestDecodeInput(t *testing.T) {
	t.Parallel()

	tcases := []struct {
		name  string
		input string
		exp   string
		err   bool
	}{
		{name: "plain", input: `{"currency":"USD"}`, exp: "USD"},
		{name: "fenced", input: "```json\n{\"currency\":\"eur\"}\n```", exp: "eur"},
		{name: "not json", input: "USD", err: true},
		{name: "missing", input: `{}`, err: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := tools.DecodeInput[rateRequest](tc.input)
			if tc.err {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, req.Currency)
		})
	}
}

func TestToLLMTools(t *testing.T) {
	ctrl := gomock.NewController(t)

	params := schema.MustFromAny(map[string]any{"type": "object"})
	mt := mocktools.NewMockITool(ctrl)
	mt.EXPECT().Name().Return("get_exchange_rate").AnyTimes()
	mt.EXPECT().Description().Return("Get the exchange rate for a currency.").AnyTimes()
	mt.EXPECT().Parameters().Return(params).AnyTimes()

	list := tools.ToLLMTools(mt)
	require.Len(t, list, 1)
	assert.Equal(t, "function", list[0].Type)
	assert.Equal(t, "get_exchange_rate", list[0].Function.Name)
	assert.Same(t, params, list[0].Function.Parameters)

	desc := tools.GetDescriptions(mt)
	assert.Contains(t, desc, `"Name": "get_exchange_rate"`)
	assert.Contains(t, desc, "```json")
}
